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

// Package lower is the target-specific instruction-lowering layer: it turns
// register-allocated machine IR with abstract copies, frame slots and pseudo
// opcodes into the real instruction set of the MOS 6502 family.
package lower

import (
    `github.com/retrocc/mos6502/internal/mir`
)

// Variant selects the hardware variant. It decides the unconditional branch
// family and which register class the bit-to-flag push/pop bounce may use,
// and is always explicit configuration, never inferred.
type Variant uint8

const (
    NMOS6502 Variant = iota
    CMOS65C02
)

func (self Variant) String() string {
    switch self {
        case NMOS6502  : return "6502"
        case CMOS65C02 : return "65c02"
        default        : panic("unreachable")
    }
}

// Has65C02 reports whether the 65C02 instruction set extensions (BRA, PHX,
// PHY, ...) are available.
func (self Variant) Has65C02() bool {
    return self == CMOS65C02
}

// InstrInfo exposes the lowering entry points for one hardware variant.
type InstrInfo struct {
    Variant Variant
}

func New(v Variant) InstrInfo {
    return InstrInfo { Variant: v }
}

// InstSizeInBytes deliberately overestimates every instruction at 3 bytes,
// the largest encoding on this architecture, so that branch relaxation always
// relaxes any branch that might be out of range.
func (self InstrInfo) InstSizeInBytes(p *mir.Instr) int {
    return 3
}

// IsLoadFromStackSlot recognizes the frame-slot load forms, returning the
// loaded register and the frame index.
func (self InstrInfo) IsLoadFromStackSlot(p *mir.Instr) (mir.Reg, int, bool) {
    switch p.Op {
        case mir.OpLDAbsOffset : return p.Args[0].Reg, p.Args[1].Index, true
        case mir.OpLDStk       : return p.Args[0].Reg, p.Args[2].Index, true
        default                : return mir.NoReg, 0, false
    }
}

// IsStoreToStackSlot recognizes the frame-slot store forms, returning the
// stored register and the frame index.
func (self InstrInfo) IsStoreToStackSlot(p *mir.Instr) (mir.Reg, int, bool) {
    switch p.Op {
        case mir.OpSTAbsOffset : return p.Args[0].Reg, p.Args[1].Index, true
        case mir.OpSTStk       : return p.Args[1].Reg, p.Args[2].Index, true
        default                : return mir.NoReg, 0, false
    }
}
