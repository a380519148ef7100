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

// Op identifies an instruction opcode. Real opcodes survive to encoding;
// pseudo opcodes are valid only until the post-allocation expansion pass;
// abstract opcodes are pre-lowering forms that no component here interprets.
type Op uint8

const (
    OpInvalid Op = iota

    /* register transfers */
    OpTAx     // index reg <- a
    OpTxA     // a <- index reg
    OpCOPY    // generic copy, lowered by the transfer synthesizer
    OpKILL    // liveness fence: marks the whole register live

    /* zero-page moves */
    OpLDImag8 // gpr <- imaginary byte
    OpSTImag8 // imaginary byte <- gpr

    /* immediates */
    OpLDImm   // 8-bit reg <- imm
    OpLDCImm  // carry <- imm
    OpCLV     // clear overflow

    /* compares */
    OpCMPImm
    OpCMPImag8

    /* ALU */
    OpADCImag8
    OpSBCImag8
    OpANDImag8
    OpEORImag8
    OpORAImag8

    /* hardware stack */
    OpPH
    OpPL

    /* flag materialization */
    OpSelectImm // dst <- (flag ? imm1 : imm2)
    OpBITAbs    // v <- bit 6 of an absolute location

    /* static stack slot access */
    OpLDAbsOffset
    OpSTAbsOffset

    /* indexed loads */
    OpLDAIdx
    OpLDXIdx
    OpLDYIdx

    /* branches */
    OpBR  // conditional, short range
    OpBRA // unconditional, short range (65C02 only)
    OpJMP // unconditional, any range

    /* post-allocation pseudos */
    OpCMPImmTerm
    OpCMPImag8Term
    OpSBCNZImag8
    OpLDIdx
    OpLDImm1
    OpSetSPLo
    OpSetSPHi

    /* soft stack slot access, resolved during frame index elimination */
    OpLDStk
    OpSTStk

    /* abstract pre-lowering branches */
    OpGBranch
    OpGBranchCond

    _OpMax
)

type opFlags uint16

const (
    _F_compare opFlags = 1 << iota
    _F_branch
    _F_cond
    _F_uncond
    _F_terminator
    _F_pseudo
    _F_abstract
    _F_commutable
)

type opInfo struct {
    name    string
    flags   opFlags
    commute [2]int
}

var _OpTab = [_OpMax]opInfo {
    OpTAx          : { name: "ta"        },
    OpTxA          : { name: "t_a"       },
    OpCOPY         : { name: "copy"      },
    OpKILL         : { name: "kill"      },
    OpLDImag8      : { name: "ldimag8"   },
    OpSTImag8      : { name: "stimag8"   },
    OpLDImm        : { name: "ldimm"     },
    OpLDCImm       : { name: "ldcimm"    },
    OpCLV          : { name: "clv"       },
    OpCMPImm       : { name: "cmpimm"    , flags: _F_compare },
    OpCMPImag8     : { name: "cmpimag8"  , flags: _F_compare },
    OpADCImag8     : { name: "adcimag8"  , flags: _F_commutable, commute: [2]int{3, 4} },
    OpSBCImag8     : { name: "sbcimag8"  },
    OpANDImag8     : { name: "andimag8"  , flags: _F_commutable, commute: [2]int{1, 2} },
    OpEORImag8     : { name: "eorimag8"  , flags: _F_commutable, commute: [2]int{1, 2} },
    OpORAImag8     : { name: "oraimag8"  , flags: _F_commutable, commute: [2]int{1, 2} },
    OpPH           : { name: "ph"        },
    OpPL           : { name: "pl"        },
    OpSelectImm    : { name: "selectimm" },
    OpBITAbs       : { name: "bitabs"    },
    OpLDAbsOffset  : { name: "ldabsoff"  },
    OpSTAbsOffset  : { name: "stabsoff"  },
    OpLDAIdx       : { name: "ldaidx"    },
    OpLDXIdx       : { name: "ldxidx"    },
    OpLDYIdx       : { name: "ldyidx"    },
    OpBR           : { name: "br"        , flags: _F_branch | _F_cond | _F_terminator },
    OpBRA          : { name: "bra"       , flags: _F_branch | _F_uncond | _F_terminator },
    OpJMP          : { name: "jmp"       , flags: _F_branch | _F_uncond | _F_terminator },
    OpCMPImmTerm   : { name: "cmpimm_t"  , flags: _F_compare | _F_terminator | _F_pseudo },
    OpCMPImag8Term : { name: "cmpimag8_t", flags: _F_compare | _F_terminator | _F_pseudo },
    OpSBCNZImag8   : { name: "sbcnzimag8", flags: _F_pseudo },
    OpLDIdx        : { name: "ldidx"     , flags: _F_pseudo },
    OpLDImm1       : { name: "ldimm1"    , flags: _F_pseudo },
    OpSetSPLo      : { name: "setsplo"   , flags: _F_pseudo },
    OpSetSPHi      : { name: "setsphi"   , flags: _F_pseudo },
    OpLDStk        : { name: "ldstk"     , flags: _F_pseudo },
    OpSTStk        : { name: "ststk"     , flags: _F_pseudo },
    OpGBranch      : { name: "g_br"      , flags: _F_branch | _F_uncond | _F_terminator | _F_abstract },
    OpGBranchCond  : { name: "g_brcond"  , flags: _F_branch | _F_cond | _F_terminator | _F_abstract },
}

func (self Op) info() *opInfo {
    if self == OpInvalid || self >= _OpMax || _OpTab[self].name == "" {
        panic("mir: invalid opcode")
    } else {
        return &_OpTab[self]
    }
}

func (self Op) String() string          { return self.info().name }
func (self Op) IsCompare() bool         { return self.info().flags & _F_compare != 0 }
func (self Op) IsBranch() bool          { return self.info().flags & _F_branch != 0 }
func (self Op) IsConditional() bool     { return self.info().flags & _F_cond != 0 }
func (self Op) IsUnconditional() bool   { return self.info().flags & _F_uncond != 0 }
func (self Op) IsTerminator() bool      { return self.info().flags & _F_terminator != 0 }
func (self Op) IsPseudo() bool          { return self.info().flags & _F_pseudo != 0 }
func (self Op) IsAbstract() bool        { return self.info().flags & _F_abstract != 0 }
func (self Op) IsCommutable() bool      { return self.info().flags & _F_commutable != 0 }

// CommutableOperands is the fixed pair of operand indices that may be swapped
// for a commutable opcode.
func (self Op) CommutableOperands() (int, int) {
    if !self.IsCommutable() {
        panic("mir: opcode is not commutable: " + self.String())
    } else {
        return self.info().commute[0], self.info().commute[1]
    }
}

/* per-opcode register class constraints for explicit operands; operands with
 * no register constraint (immediates, targets, unconstrained copies) hold
 * ClassNone */
var _OpdClasses = map[Op][]Class {
    OpTAx         : { XY, Ac },
    OpTxA         : { Ac, XY },
    OpLDImag8     : { GPR, Imag8 },
    OpSTImag8     : { Imag8, GPR },
    OpLDImm       : { Anyi8, ClassNone },
    OpLDCImm      : { Cc, ClassNone },
    OpCLV         : { Vc },
    OpCMPImm      : { Cc, GPR, ClassNone },
    OpCMPImag8    : { Cc, GPR, Imag8 },
    OpADCImag8    : { Ac, Cc, Vc, Ac, Imag8, Cc },
    OpSBCImag8    : { Ac, Cc, Vc, Ac, Imag8, Cc },
    OpSBCNZImag8  : { Ac, Cc, ClassNone, Vc, ClassNone, Ac, Imag8, Cc },
    OpANDImag8    : { Ac, Ac, Imag8 },
    OpEORImag8    : { Ac, Ac, Imag8 },
    OpORAImag8    : { Ac, Ac, Imag8 },
    OpLDAbsOffset : { GPR, ClassNone, ClassNone },
    OpSTAbsOffset : { GPR, ClassNone, ClassNone },
    OpLDAIdx      : { Ac, ClassNone, XY },
    OpLDXIdx      : { XY, ClassNone, XY },
    OpLDYIdx      : { XY, ClassNone, XY },
}

// OpdClass is the register class required for operand slot i of opcode op.
// The second return value is false when the slot carries no constraint.
func OpdClass(op Op, i int) (Class, bool) {
    if cc, ok := _OpdClasses[op]; !ok || i >= len(cc) || cc[i] == ClassNone {
        return ClassNone, false
    } else {
        return cc[i], true
    }
}
