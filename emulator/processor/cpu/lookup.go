/*
Copyright (c) 2019-2021 Andreas T Jonsson

This software is provided 'as-is', without any express or implied
warranty. In no event will the authors be held liable for any damages
arising from the use of this software.

Permission is granted to anyone to use this software for any purpose,
including commercial applications, and to alter it and redistribute it
freely, subject to the following restrictions:

1. The origin of this software must not be misrepresented; you must not
   claim that you wrote the original software. If you use this software
   in a product, an acknowledgment in the product documentation would be
   appreciated but is not required.
2. Altered source versions must be plainly marked as such, and must not be
   misrepresented as being the original software.
3. This notice may not be removed or altered from any source distribution.
*/

package cpu

import "github.com/andreas-jonsson/i8088-core/emulator/processor"

// Zero, sign and parity for every result. Parity only looks at the low byte.
var (
	znpTable8  [0x100]processor.Flags
	znpTable16 [0x10000]processor.Flags
)

func init() {
	for i := range znpTable16 {
		var f processor.Flags
		if parityLookup[i&0xFF] {
			f |= processor.Parity
		}
		if i == 0 {
			f |= processor.Zero
		}
		if i&0x8000 != 0 {
			f |= processor.Sign
		}
		znpTable16[i] = f

		if i < 0x100 {
			f &^= processor.Sign
			if i&0x80 != 0 {
				f |= processor.Sign
			}
			znpTable8[i] = f
		}
	}
}

var parityLookup = func() (t [0x100]bool) {
	for i := range t {
		n := 0
		for v := i; v != 0; v >>= 1 {
			n += v & 1
		}
		t[i] = n&1 == 0
	}
	return
}()

const noRegister = 0xFF

// Effective address components indexed by the rm field.
var (
	modRMBase    = [8]byte{3, 3, 5, 5, 6, 7, 5, 3}
	modRMIndex   = [8]byte{6, 7, 6, 7, noRegister, noRegister, noRegister, noRegister}
	modRMCycles  = [8]int{2, 3, 3, 2, 0, 0, 0, 0}
	modRMSegment = [8]processor.Segment{
		processor.SegDS, // [BX+SI]
		processor.SegDS, // [BX+DI]
		processor.SegSS, // [BP+SI]
		processor.SegSS, // [BP+DI]
		processor.SegDS, // [SI]
		processor.SegDS, // [DI]
		processor.SegSS, // [BP]
		processor.SegDS, // [BX]
	}
)

// Segment selected by the override prefixes 0x26, 0x2E, 0x36 and 0x3E.
var prefixSegment = [4]processor.Segment{processor.SegES, processor.SegCS, processor.SegSS, processor.SegDS}

// Internal cycles charged per instruction category. Classes that depend on
// the opcode or the addressing mode are resolved in access.
var accessCycles = [73]int{
	0, 1, 0, 2, 5, 0, 1, 1, 1, 1, // 0-9
	4, 2, 4, 4, 4, 2, 3, 1, 3, 3, // 10-19
	1, 1, 2, 2, 1, 2, 2, 3, 1, 4, // 20-29
	4, 6, 3, 4, 4, 2, 0, 3, 6, 4, // 30-39
	6, 4, 3, 0, 2, 2, 2, 1, 1, 1, // 40-49
	1, 1, 2, 2, 2, 1, 1, 0, 0, 0, // 50-59
	4, 0, 1, 0, 0, 0, 1, 0, 1, 0, // 60-69
	5, 0, 0, // 70-72
}

// Condition codes for Jcc, indexed by the low nibble of the opcode.
var conditionLookup = [16]func(f processor.Flags) bool{
	func(f processor.Flags) bool { return f&processor.Overflow != 0 },                                       // JO
	func(f processor.Flags) bool { return f&processor.Overflow == 0 },                                       // JNO
	func(f processor.Flags) bool { return f&processor.Carry != 0 },                                          // JB
	func(f processor.Flags) bool { return f&processor.Carry == 0 },                                          // JNB
	func(f processor.Flags) bool { return f&processor.Zero != 0 },                                           // JZ
	func(f processor.Flags) bool { return f&processor.Zero == 0 },                                           // JNZ
	func(f processor.Flags) bool { return f&(processor.Carry|processor.Zero) != 0 },                         // JBE
	func(f processor.Flags) bool { return f&(processor.Carry|processor.Zero) == 0 },                         // JA
	func(f processor.Flags) bool { return f&processor.Sign != 0 },                                           // JS
	func(f processor.Flags) bool { return f&processor.Sign == 0 },                                           // JNS
	func(f processor.Flags) bool { return f&processor.Parity != 0 },                                         // JP
	func(f processor.Flags) bool { return f&processor.Parity == 0 },                                         // JNP
	func(f processor.Flags) bool { return (f&processor.Sign != 0) != (f&processor.Overflow != 0) },          // JL
	func(f processor.Flags) bool { return (f&processor.Sign != 0) == (f&processor.Overflow != 0) },          // JGE
	func(f processor.Flags) bool { return f&processor.Zero != 0 || (f&processor.Sign != 0) != (f&processor.Overflow != 0) }, // JLE
	func(f processor.Flags) bool { return f&processor.Zero == 0 && (f&processor.Sign != 0) == (f&processor.Overflow != 0) }, // JG
}
