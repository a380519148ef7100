/*
 * Copyright 2024 retrocc Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package mir

import (
    `fmt`
)

// Reg identifies either a physical hardware location or a virtual register
// still pending allocation. Physical registers are small fixed constants,
// virtual registers carry an index into the enclosing Func's class table.
type Reg uint16

const (
    _B_virt = 15
)

const (
    _R_virt  Reg = 1 << _B_virt
    _R_index Reg = _R_virt - 1
)

// NoReg is the absent register, used where an optional flag output was not
// requested.
const NoReg Reg = 0

/* hardware 8-bit registers */
const (
    A Reg = iota + 1
    X
    Y
)

/* status flag bits; NZ is the architectural pair set by most loads and ALU ops */
const (
    C Reg = iota + 4
    V
    N
    Z
    NZ
)

/* imaginary (zero-page resident) register banks */
const (
    _R_imag8   Reg = 16
    _N_imag8       = 32
    _R_imag16  Reg = 64
    _N_imag16      = 16
    _R_gprlsb  Reg = 96
    _R_imaglsb Reg = 112
)

/* zero-page byte registers reserved for the soft stack pointer */
const (
    RC0 = _R_imag8 + 0
    RC1 = _R_imag8 + 1
)

/* LSB sub-registers of the hardware 8-bit registers */
const (
    ALsb = _R_gprlsb + 0
    XLsb = _R_gprlsb + 1
    YLsb = _R_gprlsb + 2
)

// RC returns the i-th imaginary zero-page byte register.
func RC(i int) Reg {
    if i < 0 || i >= _N_imag8 {
        panic(fmt.Sprintf("mir: no such imaginary byte register: rc%d", i))
    } else {
        return _R_imag8 + Reg(i)
    }
}

// RS returns the i-th imaginary 16-bit register pair, which decomposes into
// the byte registers RC(2i) and RC(2i+1).
func RS(i int) Reg {
    if i < 0 || i >= _N_imag16 {
        panic(fmt.Sprintf("mir: no such imaginary word register: rs%d", i))
    } else {
        return _R_imag16 + Reg(i)
    }
}

// VirtualReg constructs the virtual register with table index i.
func VirtualReg(i int) Reg {
    return _R_virt | (Reg(i) & _R_index)
}

func (self Reg) IsVirtual() bool {
    return self & _R_virt != 0
}

func (self Reg) IsPhysical() bool {
    return self != NoReg && !self.IsVirtual()
}

// Index is the class-table index of a virtual register.
func (self Reg) Index() int {
    return int(self & _R_index)
}

func isImag8(r Reg) bool {
    return r >= _R_imag8 && r < _R_imag8 + _N_imag8
}

func isImag16(r Reg) bool {
    return r >= _R_imag16 && r < _R_imag16 + _N_imag16
}

func isGPRLsb(r Reg) bool {
    return r >= _R_gprlsb && r < _R_gprlsb + 3
}

func isImagLsb(r Reg) bool {
    return r >= _R_imaglsb && r < _R_imaglsb + _N_imag8
}

func (self Reg) String() string {
    switch {
        case self == NoReg     : return "noreg"
        case self == A         : return "a"
        case self == X         : return "x"
        case self == Y         : return "y"
        case self == C         : return "c"
        case self == V         : return "v"
        case self == N         : return "n"
        case self == Z         : return "z"
        case self == NZ        : return "nz"
        case self.IsVirtual()  : return fmt.Sprintf("%%%d", self.Index())
        case isImag8(self)     : return fmt.Sprintf("rc%d", self - _R_imag8)
        case isImag16(self)    : return fmt.Sprintf("rs%d", self - _R_imag16)
        case isGPRLsb(self)    : return fmt.Sprintf("%s.lsb", self - _R_gprlsb + A)
        case isImagLsb(self)   : return fmt.Sprintf("rc%d.lsb", self - _R_imaglsb)
        default                : return fmt.Sprintf("reg(%d)", uint16(self))
    }
}

// SubIdx selects a named sub-register of a wider register.
type SubIdx uint8

const (
    SubNone SubIdx = iota
    SubLo          // low byte of a 16-bit pair
    SubHi          // high byte of a 16-bit pair
    SubLsb         // bit 0 of an 8-bit register
)

func (self SubIdx) String() string {
    switch self {
        case SubNone : return "none"
        case SubLo   : return "lo"
        case SubHi   : return "hi"
        case SubLsb  : return "lsb"
        default      : panic("unreachable")
    }
}

// SubRegOf resolves the idx sub-register of a physical register, or NoReg if
// the register has no such sub-register.
func SubRegOf(r Reg, idx SubIdx) Reg {
    switch idx {
        default: {
            return NoReg
        }

        /* byte halves of 16-bit pairs */
        case SubLo: {
            if !isImag16(r) {
                return NoReg
            } else {
                return _R_imag8 + (r - _R_imag16) * 2
            }
        }

        case SubHi: {
            if !isImag16(r) {
                return NoReg
            } else {
                return _R_imag8 + (r - _R_imag16) * 2 + 1
            }
        }

        /* bit 0 of 8-bit registers */
        case SubLsb: {
            switch {
                case r >= A && r <= Y : return _R_gprlsb + (r - A)
                case isImag8(r)       : return _R_imaglsb + (r - _R_imag8)
                default               : return NoReg
            }
        }
    }
}

// MatchingSuperReg finds the register whose idx sub-register is r and which is
// a member of class c, or NoReg if no such register exists.
func MatchingSuperReg(r Reg, idx SubIdx, c Class) Reg {
    var sup Reg

    /* invert the sub-register tables */
    switch idx {
        default: {
            return NoReg
        }

        case SubLo: {
            if !isImag8(r) || (r - _R_imag8) % 2 != 0 {
                return NoReg
            }
            sup = _R_imag16 + (r - _R_imag8) / 2
        }

        case SubHi: {
            if !isImag8(r) || (r - _R_imag8) % 2 != 1 {
                return NoReg
            }
            sup = _R_imag16 + (r - _R_imag8) / 2
        }

        case SubLsb: {
            switch {
                case isGPRLsb(r)  : sup = A + (r - _R_gprlsb)
                case isImagLsb(r) : sup = _R_imag8 + (r - _R_imaglsb)
                default           : return NoReg
            }
        }
    }

    /* the super-register must also satisfy the class */
    if !c.Contains(sup) {
        return NoReg
    } else {
        return sup
    }
}

// RegsOverlap reports whether two physical registers alias each other, either
// directly or through a sub-register relationship.
func RegsOverlap(a Reg, b Reg) bool {
    if a == NoReg || b == NoReg {
        return false
    }
    if a == b {
        return true
    }
    return regCovers(a, b) || regCovers(b, a)
}

func regCovers(sup Reg, sub Reg) bool {
    switch {
        case isImag16(sup) : return sub == SubRegOf(sup, SubLo) ||
                                    sub == SubRegOf(sup, SubHi) ||
                                    regCovers(SubRegOf(sup, SubLo), sub) ||
                                    regCovers(SubRegOf(sup, SubHi), sub)
        case sup == NZ     : return sub == N || sub == Z
        default            : return SubRegOf(sup, SubLsb) == sub
    }
}
