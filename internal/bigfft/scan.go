package bigfft

import (
	"fmt"
	"math/big"
)

// directScanDigits is the number of digits below which big.Int.SetString
// outperforms subquadratic splitting. 1232 digits fit in 4096 bits, and 14
// divides 1232.
const directScanDigits = 1232

// FromDecimalString converts the base-10 representation of a natural
// (non-negative) number into a *big.Int. Long inputs are split at
// power-of-two multiples of the threshold and the halves combined with
// FFT products, for less than quadratic total cost.
func FromDecimalString(s string) (*big.Int, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("bigfft: empty decimal string")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return nil, fmt.Errorf("bigfft: invalid decimal digit %q at position %d", s[i], i)
		}
	}
	var z big.Int
	if err := new(scanner).scanRec(&z, s, new(big.Int)); err != nil {
		return nil, err
	}
	return &z, nil
}

// scanner memoizes the split powers of ten across one scan.
type scanner struct{ powers []*big.Int }

// chunkSize returns the digit count to split off the right end of a string
// of the given size, with the matching power of ten.
func (s *scanner) chunkSize(size int) (int, *big.Int, error) {
	if size <= directScanDigits {
		panic("chunkSize below directScanDigits")
	}
	var pow uint
	for n := size; n > directScanDigits; n /= 2 {
		pow++
	}
	// directScanDigits<<(pow-1) <= size < directScanDigits<<pow
	p, err := s.power(pow - 1)
	if err != nil {
		return 0, nil, err
	}
	return directScanDigits << (pow - 1), p, nil
}

// power returns 10^(directScanDigits << k), extending the memo table by
// repeated squaring as needed.
func (s *scanner) power(k uint) (*big.Int, error) {
	for len(s.powers) <= int(k) {
		if len(s.powers) == 0 {
			seed := new(big.Int).Exp(big.NewInt(1e14), big.NewInt(directScanDigits/14), nil)
			s.powers = append(s.powers, seed)
			continue
		}
		sq, err := Sqr(s.powers[len(s.powers)-1])
		if err != nil {
			return nil, err
		}
		s.powers = append(s.powers, sq)
	}
	return s.powers[k], nil
}

// scanRec scans str into z, reusing scratch for right-hand chunks to limit
// allocations in the divide-and-conquer.
func (s *scanner) scanRec(z *big.Int, str string, scratch *big.Int) error {
	if len(str) <= directScanDigits {
		if _, ok := z.SetString(str, 10); !ok {
			return fmt.Errorf("bigfft: invalid decimal chunk %q", str)
		}
		return nil
	}
	cut, pow, err := s.chunkSize(len(str))
	if err != nil {
		return err
	}
	head, tail := str[:len(str)-cut], str[len(str)-cut:]
	if err := s.scanRec(z, head, scratch); err != nil {
		return err
	}
	left, err := MulTo(z, z, pow)
	if err != nil {
		return err
	}
	if err := s.scanRec(scratch, tail, new(big.Int)); err != nil {
		return err
	}
	z.Add(left, scratch)
	return nil
}
