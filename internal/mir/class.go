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

// Class names a set of interchangeable registers valid for an operand slot.
// The classes are not symmetric: many operations accept one class on the left
// and a different one on the right.
type Class uint8

const (
    ClassNone Class = iota
    Ac              // accumulator only
    XY              // index registers
    GPR             // accumulator and index registers
    Cc              // carry flag only
    Vc              // overflow flag only
    Flag            // allocatable flag bits
    Imag8           // imaginary zero-page bytes
    Anyi8           // any 8-bit register
    Imag16          // imaginary 16-bit pairs
    GPRLsb          // bit 0 of the hardware 8-bit registers
    Imag8Lsb        // bit 0 of the imaginary byte registers
    Anyi1           // any 1-bit register
)

// Width is the bit-width category of a register class, used to bound the copy
// recursion: word decomposes into bytes, bytes into bits, never the reverse.
type Width uint8

const (
    WidthNone Width = iota
    WidthBit
    WidthByte
    WidthWord
)

func (self Class) String() string {
    switch self {
        case ClassNone : return "none"
        case Ac        : return "Ac"
        case XY        : return "XY"
        case GPR       : return "GPR"
        case Cc        : return "Cc"
        case Vc        : return "Vc"
        case Flag      : return "Flag"
        case Imag8     : return "Imag8"
        case Anyi8     : return "Anyi8"
        case Imag16    : return "Imag16"
        case GPRLsb    : return "GPRLsb"
        case Imag8Lsb  : return "Imag8Lsb"
        case Anyi1     : return "Anyi1"
        default        : panic("unreachable")
    }
}

// Contains reports whether physical register r is a member of the class.
func (self Class) Contains(r Reg) bool {
    if !r.IsPhysical() {
        return false
    }
    switch self {
        case ClassNone : return false
        case Ac        : return r == A
        case XY        : return r == X || r == Y
        case GPR       : return r == A || r == X || r == Y
        case Cc        : return r == C
        case Vc        : return r == V
        case Flag      : return r == C || r == V
        case Imag8     : return isImag8(r)
        case Anyi8     : return GPR.Contains(r) || isImag8(r)
        case Imag16    : return isImag16(r)
        case GPRLsb    : return isGPRLsb(r)
        case Imag8Lsb  : return isImagLsb(r)
        case Anyi1     : return r == C || r == V || isGPRLsb(r) || isImagLsb(r)
        default        : panic("unreachable")
    }
}

var _SuperClasses = map[Class][]Class {
    Ac       : { GPR, Anyi8 },
    XY       : { GPR, Anyi8 },
    GPR      : { Anyi8 },
    Cc       : { Flag, Anyi1 },
    Vc       : { Flag, Anyi1 },
    Flag     : { Anyi1 },
    Imag8    : { Anyi8 },
    GPRLsb   : { Anyi1 },
    Imag8Lsb : { Anyi1 },
}

// HasSuperClassEq reports whether the class equals c or is a sub-class of c,
// meaning every member of the class is also a member of c.
func (self Class) HasSuperClassEq(c Class) bool {
    if self == c {
        return true
    }
    for _, v := range _SuperClasses[self] {
        if v == c {
            return true
        }
    }
    return false
}

// CommonClass returns the most constrained of two classes when one contains
// the other, or ClassNone when neither does. It is the constraint-combining
// step used when narrowing a virtual register across all of its uses.
func CommonClass(a Class, b Class) Class {
    switch {
        case a == ClassNone         : return b
        case b == ClassNone         : return a
        case a.HasSuperClassEq(b)   : return a
        case b.HasSuperClassEq(a)   : return b
        default                     : return ClassNone
    }
}

// WidthOf is the bit-width category of the class.
func (self Class) WidthOf() Width {
    switch self {
        case Ac, XY, GPR, Imag8, Anyi8          : return WidthByte
        case Imag16                             : return WidthWord
        case Cc, Vc, Flag, GPRLsb, Imag8Lsb, Anyi1 : return WidthBit
        default                                 : return WidthNone
    }
}

// RegWidth is the bit-width category of a physical register.
func RegWidth(r Reg) Width {
    switch {
        case GPR.Contains(r) || isImag8(r) : return WidthByte
        case isImag16(r)                   : return WidthWord
        case Anyi1.Contains(r)             : return WidthBit
        case r == N || r == Z              : return WidthBit
        default                            : return WidthNone
    }
}
