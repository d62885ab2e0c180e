//go:build amd64

package bigfft

import "golang.org/x/sys/cpu"

func init() {
	switch {
	case cpu.X86.HasAVX512F && cpu.X86.HasAVX512DQ:
		simdLevel = SIMDAVX512
	case cpu.X86.HasAVX2:
		simdLevel = SIMDAVX2
	}
	hasFastCarry = cpu.X86.HasBMI2 && cpu.X86.HasADX
}
