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

package lower

import (
    `github.com/retrocc/mos6502/internal/mir`
)

// CommuteAnyOperandIndex lets FindCommutedOpIndices pick the slot itself.
const CommuteAnyOperandIndex = -1

// FindCommutedOpIndices determines the two operand slots of p that may be
// swapped. The register classes here are not regular enough to derive the
// pair positionally, so it comes from a fixed per-opcode table. A caller may
// pin either hint to a concrete slot, in which case it must belong to the
// table pair and the free slot is filled in from the other entry.
func (self InstrInfo) FindCommutedOpIndices(p *mir.Instr, hint1 int, hint2 int) (int, int, bool) {
    if !p.Op.IsCommutable() {
        return 0, 0, false
    }

    i, j := p.Op.CommutableOperands()
    r1, r2, ok := fixCommutedIndices(hint1, hint2, i, j)
    if !ok {
        return 0, 0, false
    }

    /* both slots must actually hold registers */
    if !p.Args[r1].IsReg() || !p.Args[r2].IsReg() {
        return 0, 0, false
    }
    return r1, r2, true
}

/* reconcile the caller's pinned slots with the per-opcode pair */
func fixCommutedIndices(h1 int, h2 int, i int, j int) (int, int, bool) {
    switch {
        case h1 == CommuteAnyOperandIndex && h2 == CommuteAnyOperandIndex : return i, j, true
        case h1 == CommuteAnyOperandIndex && h2 == i                     : return j, i, true
        case h1 == CommuteAnyOperandIndex && h2 == j                     : return i, j, true
        case h2 == CommuteAnyOperandIndex && h1 == i                     : return i, j, true
        case h2 == CommuteAnyOperandIndex && h1 == j                     : return j, i, true
        case h1 == i && h2 == j                                          : return i, j, true
        case h1 == j && h2 == i                                          : return j, i, true
        default                                                          : return 0, 0, false
    }
}

// CommuteInstruction checks that swapping operands i and j of p is legal
// under the asymmetric register classes and, if so, returns the commuted
// replacement instruction. A physical register must be a member of the other
// slot's class; a virtual register must admit a class narrowing that stays
// valid for every one of its uses elsewhere in the function. On success the
// narrowed classes are applied to the virtual registers and the caller must
// install the replacement; on failure p is left untouched and nil is
// returned.
func (self InstrInfo) CommuteInstruction(fn *mir.Func, p *mir.Instr, i int, j int) (*mir.Instr, bool) {
    c1, ok1 := mir.OpdClass(p.Op, i)
    c2, ok2 := mir.OpdClass(p.Op, j)

    /* commutable slots always carry class constraints */
    if !ok1 || !ok2 {
        return nil, false
    }

    r1 := p.Args[i].Reg
    r2 := p.Args[j].Reg

    /* see if each register can live in the other slot */
    var nc1, nc2 mir.Class
    if r1.IsVirtual() {
        if nc1 = self.classForAllUses(fn, p, r1, c2); nc1 == mir.ClassNone {
            return nil, false
        }
    } else if !c2.Contains(r1) {
        return nil, false
    }
    if r2.IsVirtual() {
        if nc2 = self.classForAllUses(fn, p, r2, c1); nc2 == mir.ClassNone {
            return nil, false
        }
    } else if !c1.Contains(r2) {
        return nil, false
    }

    /* perform the generic swap on a copy */
    q := p.Clone()
    q.Args[i], q.Args[j] = q.Args[j], q.Args[i]

    /* apply the recomputed classes */
    if r1.IsVirtual() {
        fn.SetClass(r1, nc1)
    }
    if r2.IsVirtual() {
        fn.SetClass(r2, nc2)
    }
    return q, true
}

// classForAllUses narrows rc by the constraint of every operand referencing
// r outside of the instruction being commuted, effectively dropping that
// instruction's own constraint and substituting the other slot's. ClassNone
// means no single class satisfies all uses.
func (self InstrInfo) classForAllUses(fn *mir.Func, exclude *mir.Instr, r mir.Reg, rc mir.Class) mir.Class {
    for _, ref := range fn.RegRefs(r) {
        if ref.Instr == exclude {
            continue
        }

        /* unconstrained slots do not narrow the class */
        c, ok := mir.OpdClass(ref.Instr.Op, ref.Idx)
        if !ok {
            continue
        }

        /* combine; disjoint constraints make the commute illegal */
        if rc = mir.CommonClass(rc, c); rc == mir.ClassNone {
            return mir.ClassNone
        }
    }
    return rc
}
