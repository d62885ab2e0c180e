package bigfft

// MemoryEstimate describes the expected allocation profile of one
// multiplication, for admission control and capacity planning.
type MemoryEstimate struct {
	// ResultWords is the size of the product in words.
	ResultWords int
	// TransformK is the transform length exponent (2^K points).
	TransformK uint
	// CoefficientWords is the residue size each transform point carries.
	CoefficientWords int
	// ArenaBytes is the bump arena serving the whole pipeline.
	ArenaBytes uint64
	// TotalBytes adds the result buffer on top of the arena.
	TotalBytes uint64
}

// EstimateFFTMemory estimates the peak additional memory needed to
// multiply operands of the given bit lengths. The arena margin makes the
// estimate err high rather than low, which is the useful direction for
// admission gates.
func EstimateFFTMemory(xBits, yBits uint64) MemoryEstimate {
	w := uint64(_W)
	words := int((xBits+w-1)/w) + int((yBits+w-1)/w)
	if words < 2 {
		words = 2
	}
	k, m := FFTParams(words)
	n := valueSize(k, m, 0)
	arena := uint64(estimateBumpCapacity(k, m, n)) * uint64(_W/8)
	return MemoryEstimate{
		ResultWords:      words,
		TransformK:       k,
		CoefficientWords: n + 1,
		ArenaBytes:       arena,
		TotalBytes:       arena + uint64(words)*uint64(_W/8),
	}
}
