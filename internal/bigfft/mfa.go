package bigfft

// mfaThresholdK is the transform size exponent from which fourier switches
// to the matrix decomposition. Below it the plain recursion's strided
// access still fits in cache and the extra permutation pass is a loss.
const mfaThresholdK uint = 10

// fourierMatrix computes the same length-2^k transform as fourierSplit by
// the six-step (matrix) method: the coefficients are viewed as an R×C
// matrix with K = R·C, columns are transformed, positions are twiddled,
// rows are transformed, and the result is transposed back into natural
// index order. Each sub-transform works on one contiguous or gathered
// block, which keeps the working set small for transforms too large for
// the strided recursion to walk cache-efficiently.
//
// It is value-for-value interchangeable with fourierSplit in both
// directions, so transforms computed by either can be mixed freely.
// src is destroyed.
func fourierMatrix(dst, src []fermat, backward bool, n int, k uint, trunc int, alloc tempAllocator) error {
	k1 := k / 2
	k2 := k - k1
	R, C := 1<<k1, 1<<k2

	// √2 exponent unit of the full K-point root; the stage roots
	// ω^R and ω^C are what fourierSplit derives itself at sizes k2, k1.
	unit := (4 * n * _W) >> k
	if backward {
		unit = -unit
	}

	colSrc, _, releaseSrc := alloc.fermatSlice(C, n)
	colDst, _, releaseDst := alloc.fermatSlice(C, n)
	defer releaseSrc()
	defer releaseDst()
	tmp, release := alloc.fermatTemp(n)
	tmp2, release2 := alloc.fermatTemp(n)
	defer release()
	defer release2()

	if !backward {
		// Columns: column a holds positions a+R·b. Transform each and
		// twiddle position a+R·c by ω^(a·c) while scattering back.
		for a := 0; a < R; a++ {
			nonzero := 0
			if a < trunc {
				nonzero = (trunc - a + R - 1) / R
			}
			if nonzero == 0 {
				continue // column is entirely zero and stays so
			}
			for b := 0; b < C; b++ {
				copy(colSrc[b], src[a+R*b])
			}
			if err := fourierSplit(colDst, colSrc, backward, n, k2, k2, 0, nonzero, tmp, tmp2); err != nil {
				return err
			}
			for c := 0; c < C; c++ {
				if e := a * c * unit; e != 0 {
					src[a+R*c].ShiftHalf(colDst[c], e, tmp)
				} else {
					copy(src[a+R*c], colDst[c])
				}
			}
		}
		// Rows: contiguous blocks of R positions.
		rowDst := colDst[:R]
		for c := 0; c < C; c++ {
			if err := fourierSplit(rowDst, src[R*c:R*c+R], backward, n, k1, k1, 0, R, tmp, tmp2); err != nil {
				return err
			}
			for d := 0; d < R; d++ {
				copy(src[R*c+d], rowDst[d])
			}
		}
		// Transpose: position d+R·c holds output index c+C·d.
		for c := 0; c < C; c++ {
			for d := 0; d < R; d++ {
				copy(dst[c+C*d], src[d+R*c])
			}
		}
		return nil
	}

	// Backward runs the forward steps in reverse order with inverted
	// roots, so that backward(forward(x)) = K·x coefficient-wise.
	for c := 0; c < C; c++ {
		for d := 0; d < R; d++ {
			copy(dst[d+R*c], src[c+C*d])
		}
	}
	rowDst := colDst[:R]
	for c := 0; c < C; c++ {
		if err := fourierSplit(rowDst, dst[R*c:R*c+R], backward, n, k1, k1, 0, R, tmp, tmp2); err != nil {
			return err
		}
		for d := 0; d < R; d++ {
			copy(dst[R*c+d], rowDst[d])
		}
	}
	// Columns, undoing the twiddle while gathering.
	for a := 0; a < R; a++ {
		for c := 0; c < C; c++ {
			if e := a * c * unit; e != 0 {
				colSrc[c].ShiftHalf(dst[a+R*c], e, tmp)
			} else {
				copy(colSrc[c], dst[a+R*c])
			}
		}
		if err := fourierSplit(colDst, colSrc, backward, n, k2, k2, 0, C, tmp, tmp2); err != nil {
			return err
		}
		for b := 0; b < C; b++ {
			copy(dst[a+R*b], colDst[b])
		}
	}
	return nil
}
