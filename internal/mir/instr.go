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
    `strings`

    `github.com/samber/lo`
)

// OpdKind discriminates the operand variants.
type OpdKind uint8

const (
    OpdReg OpdKind = iota
    OpdImm
    OpdFrame
    OpdBlock
    OpdSymbol
)

// OpdFlags are target-specific tags on an operand, marking it as the low or
// high byte of a symbolic address. They are round-tripped to the encoder and
// not interpreted further here.
type OpdFlags uint8

const (
    MO_LO OpdFlags = 1 << iota
    MO_HI
)

// Target indices attached to frame operands.
const (
    TI_STATIC_STACK = 0
)

// OperandFlagNames maps the operand-level address tags to the stable textual
// names used by the encoder and the MIR printer.
func OperandFlagNames() []struct { F OpdFlags; Name string } {
    return []struct { F OpdFlags; Name string } {
        { MO_LO, "lo" },
        { MO_HI, "hi" },
    }
}

// TargetIndexNames maps the frame-operand target indices to their stable
// textual names.
func TargetIndexNames() []struct { I int; Name string } {
    return []struct { I int; Name string } {
        { TI_STATIC_STACK, "mos-static-stack" },
    }
}

// DecomposeOperandFlags splits operand flags into their direct and bitmask
// parts; this target has no bitmask flags.
func DecomposeOperandFlags(f OpdFlags) (OpdFlags, OpdFlags) {
    return f, 0
}

// Operand is one slot of an instruction: a register (with optional
// sub-register selector and liveness state), an immediate, a frame index, a
// branch target, or an external symbol.
type Operand struct {
    Kind         OpdKind
    Reg          Reg
    Sub          SubIdx
    Imm          int64
    Index        int
    Block        *Block
    Sym          string
    Flags        OpdFlags
    Def          bool
    Implicit     bool
    Kill         bool
    Undef        bool
    EarlyClobber bool
}

func UseReg(r Reg) Operand  { return Operand { Kind: OpdReg, Reg: r } }
func DefReg(r Reg) Operand  { return Operand { Kind: OpdReg, Reg: r, Def: true } }
func Imm(v int64) Operand   { return Operand { Kind: OpdImm, Imm: v } }
func Frame(i int) Operand   { return Operand { Kind: OpdFrame, Index: i } }
func Target(b *Block) Operand { return Operand { Kind: OpdBlock, Block: b } }
func Symbol(s string) Operand { return Operand { Kind: OpdSymbol, Sym: s } }

func (self Operand) IsReg() bool { return self.Kind == OpdReg }
func (self Operand) IsUse() bool { return self.Kind == OpdReg && !self.Def }

// WithSub returns a copy of the operand with the sub-register selector set.
func (self Operand) WithSub(idx SubIdx) Operand {
    self.Sub = idx
    return self
}

func (self Operand) String() string {
    switch self.Kind {
        default: {
            panic("unreachable")
        }

        case OpdReg: {
            s := self.Reg.String()
            if self.Sub != SubNone {
                s += ":" + self.Sub.String()
            }
            if self.Def {
                s = "def " + s
            }
            if self.Implicit {
                s = "implicit " + s
            }
            if self.Kill {
                s += " <kill>"
            }
            if self.Undef {
                s += " <undef>"
            }
            if self.EarlyClobber {
                s += " <earlyclobber>"
            }
            return s
        }

        case OpdImm: {
            return fmt.Sprintf("$%d", self.Imm)
        }

        case OpdFrame: {
            return fmt.Sprintf("%%stack.%d", self.Index)
        }

        case OpdBlock: {
            return fmt.Sprintf("bb_%d", self.Block.Id)
        }

        case OpdSymbol: {
            return "@" + self.Sym
        }
    }
}

// Instr is a single machine instruction: an opcode and its ordered operand
// list, explicit defs before uses, implicit operands appended at the end.
type Instr struct {
    Op   Op
    Args []Operand
}

func NewInstr(op Op, args ...Operand) *Instr {
    return &Instr { Op: op, Args: args }
}

// Clone returns a deep copy of the instruction with independent operands.
func (self *Instr) Clone() *Instr {
    return &Instr { Op: self.Op, Args: append([]Operand(nil), self.Args...) }
}

// AddImplicitDef appends an implicit register definition.
func (self *Instr) AddImplicitDef(r Reg) {
    self.Args = append(self.Args, Operand {
        Kind     : OpdReg,
        Reg      : r,
        Def      : true,
        Implicit : true,
    })
}

// ReadsReg reports whether any use operand aliases physical register r.
func (self *Instr) ReadsReg(r Reg) bool {
    return lo.SomeBy(self.Args, func(v Operand) bool {
        return v.IsUse() && RegsOverlap(v.Reg, r)
    })
}

// DefinesReg reports whether any def operand aliases physical register r.
func (self *Instr) DefinesReg(r Reg) bool {
    return lo.SomeBy(self.Args, func(v Operand) bool {
        return v.IsReg() && v.Def && RegsOverlap(v.Reg, r)
    })
}

func (self *Instr) String() string {
    if len(self.Args) == 0 {
        return self.Op.String()
    }
    return fmt.Sprintf(
        "%s %s",
        self.Op,
        strings.Join(lo.Map(self.Args, func(v Operand, _ int) string { return v.String() }), ", "),
    )
}
