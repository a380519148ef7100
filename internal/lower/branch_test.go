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
    `testing`

    `github.com/retrocc/mos6502/internal/emu`
    `github.com/retrocc/mos6502/internal/mir`
    `github.com/stretchr/testify/require`
)

func TestBranch_AnalyzeFallthrough(t *testing.T) {
    ii := New(NMOS6502)
    fn := mir.NewFunc("fall")
    bb := fn.CreateBlock()
    fn.AtEnd(bb).Emit(mir.OpLDImm, mir.DefReg(mir.A), mir.Imm(1))

    br, ok := ii.AnalyzeBranch(bb)
    require.True(t, ok)
    require.True(t, br.Fallthrough())
}

func TestBranch_AnalyzeShapes(t *testing.T) {
    ii := New(NMOS6502)
    fn := mir.NewFunc("shapes")
    bb := fn.CreateBlock()
    l1 := fn.CreateBlock()
    l2 := fn.CreateBlock()

    /* unconditional only */
    fn.AtEnd(bb).Emit(mir.OpJMP, mir.Target(l1))
    br, ok := ii.AnalyzeBranch(bb)
    require.True(t, ok)
    require.Equal(t, l1, br.TBB)
    require.Nil(t, br.FBB)
    require.Nil(t, br.Cond)

    /* conditional with fallthrough */
    bb.Ins = nil
    fn.AtEnd(bb).Emit(mir.OpBR, mir.Target(l1), mir.UseReg(mir.C), mir.Imm(1))
    br, ok = ii.AnalyzeBranch(bb)
    require.True(t, ok)
    require.Equal(t, l1, br.TBB)
    require.Nil(t, br.FBB)
    require.Equal(t, &Cond { Flag: mir.C, Val: true }, br.Cond)

    /* conditional plus unconditional; a leading compare is skipped */
    bb.Ins = nil
    fn.AtEnd(bb).Emit(mir.OpCMPImmTerm, mir.DefReg(mir.C), mir.UseReg(mir.A), mir.Imm(5))
    fn.AtEnd(bb).Emit(mir.OpBR, mir.Target(l1), mir.UseReg(mir.C), mir.Imm(0))
    fn.AtEnd(bb).Emit(mir.OpJMP, mir.Target(l2))
    br, ok = ii.AnalyzeBranch(bb)
    require.True(t, ok)
    require.Equal(t, l1, br.TBB)
    require.Equal(t, l2, br.FBB)
    require.Equal(t, &Cond { Flag: mir.C, Val: false }, br.Cond)
}

func TestBranch_AnalyzeRejects(t *testing.T) {
    ii := New(NMOS6502)
    fn := mir.NewFunc("reject")
    l1 := fn.CreateBlock()

    /* abstract branches are not analyzable */
    bb := fn.CreateBlock()
    fn.AtEnd(bb).Emit(mir.OpGBranch, mir.Target(l1))
    _, ok := ii.AnalyzeBranch(bb)
    require.False(t, ok)

    /* two conditional branches are not analyzable */
    bb = fn.CreateBlock()
    fn.AtEnd(bb).Emit(mir.OpBR, mir.Target(l1), mir.UseReg(mir.C), mir.Imm(1))
    fn.AtEnd(bb).Emit(mir.OpBR, mir.Target(l1), mir.UseReg(mir.V), mir.Imm(1))
    _, ok = ii.AnalyzeBranch(bb)
    require.False(t, ok)
}

func TestBranch_InsertAnalyzeIdentity(t *testing.T) {
    for _, v := range []Variant { NMOS6502, CMOS65C02 } {
        ii := New(v)
        fn := mir.NewFunc("ident")
        bb := fn.CreateBlock()
        l1 := fn.CreateBlock()
        l2 := fn.CreateBlock()

        cond := &Cond { Flag: mir.C, Val: true }
        n, bytes := ii.InsertBranch(fn, bb, l1, l2, cond)
        require.Equal(t, 2, n)
        require.Equal(t, 6, bytes)

        br, ok := ii.AnalyzeBranch(bb)
        require.True(t, ok)
        require.Equal(t, l1, br.TBB)
        require.Equal(t, l2, br.FBB)
        require.Equal(t, cond, br.Cond)

        /* removal leaves nothing behind, and analysis sees a fallthrough */
        n, bytes = ii.RemoveBranch(bb)
        require.Equal(t, 2, n)
        require.Equal(t, 6, bytes)
        br, ok = ii.AnalyzeBranch(bb)
        require.True(t, ok)
        require.True(t, br.Fallthrough())
    }
}

func TestBranch_RemoveKeepsCompares(t *testing.T) {
    ii := New(NMOS6502)
    fn := mir.NewFunc("keep")
    bb := fn.CreateBlock()
    l1 := fn.CreateBlock()

    fn.AtEnd(bb).Emit(mir.OpCMPImmTerm, mir.DefReg(mir.C), mir.UseReg(mir.A), mir.Imm(5))
    ii.InsertBranch(fn, bb, l1, nil, &Cond { Flag: mir.C, Val: true })

    n, _ := ii.RemoveBranch(bb)
    require.Equal(t, 1, n)
    require.Len(t, bb.Ins, 1)
    require.Equal(t, mir.OpCMPImmTerm, bb.Ins[0].Op)
}

func TestBranch_VariantSelectsForm(t *testing.T) {
    fn := mir.NewFunc("form")
    l1 := fn.CreateBlock()

    bb := fn.CreateBlock()
    New(NMOS6502).InsertBranch(fn, bb, l1, nil, nil)
    require.Equal(t, mir.OpJMP, bb.Ins[0].Op)

    bb = fn.CreateBlock()
    New(CMOS65C02).InsertBranch(fn, bb, l1, nil, nil)
    require.Equal(t, mir.OpBRA, bb.Ins[0].Op)
}

func TestBranch_Reverse(t *testing.T) {
    ii := New(NMOS6502)
    c := Cond { Flag: mir.C, Val: true }
    ii.ReverseBranchCondition(&c)
    require.Equal(t, Cond { Flag: mir.C, Val: false }, c)
    ii.ReverseBranchCondition(&c)
    require.Equal(t, Cond { Flag: mir.C, Val: true }, c)
}

func TestBranch_OffsetRange(t *testing.T) {
    ii := New(NMOS6502)
    require.True(t, ii.BranchOffsetInRange(mir.OpBR, -126))
    require.True(t, ii.BranchOffsetInRange(mir.OpBR, 129))
    require.False(t, ii.BranchOffsetInRange(mir.OpBR, -127))
    require.False(t, ii.BranchOffsetInRange(mir.OpBR, 130))
    require.True(t, ii.BranchOffsetInRange(mir.OpBRA, 0))
    require.True(t, ii.BranchOffsetInRange(mir.OpJMP, 32767))
    require.True(t, ii.BranchOffsetInRange(mir.OpJMP, -32768))
    require.Panics(t, func() { ii.BranchOffsetInRange(mir.OpLDImm, 0) })
}

/* lower "x = a >= 5 ? 1 : 2" by hand, then reverse the branch and check the
 * observable behavior is unchanged */
func buildSelectFunc(ii InstrInfo) (*mir.Func, *mir.Block) {
    fn := mir.NewFunc("select")
    bb := fn.CreateBlock()
    l1 := fn.CreateBlock()
    l2 := fn.CreateBlock()
    end := fn.CreateBlock()

    fn.AtEnd(bb).Emit(mir.OpCMPImmTerm, mir.DefReg(mir.C), mir.UseReg(mir.A), mir.Imm(5))
    ii.InsertBranch(fn, bb, l1, l2, &Cond { Flag: mir.C, Val: true })

    fn.AtEnd(l1).Emit(mir.OpLDImm, mir.DefReg(mir.X), mir.Imm(1))
    fn.AtEnd(l1).Emit(mir.OpJMP, mir.Target(end))
    fn.AtEnd(l2).Emit(mir.OpLDImm, mir.DefReg(mir.X), mir.Imm(2))
    return fn, bb
}

func runSelect(t *testing.T, fn *mir.Func, a uint16) uint16 {
    m := emu.New(fn)
    m.Set(mir.A, a)
    m.Run(fn.Blocks[0])
    return m.Get(mir.X)
}

func TestBranch_ReverseEndToEnd(t *testing.T) {
    ii := New(NMOS6502)
    fn, bb := buildSelectFunc(ii)

    require.Equal(t, uint16(1), runSelect(t, fn, 7))
    require.Equal(t, uint16(1), runSelect(t, fn, 5))
    require.Equal(t, uint16(2), runSelect(t, fn, 3))

    /* reverse the condition and swap the edges */
    br, ok := ii.AnalyzeBranch(bb)
    require.True(t, ok)
    ii.RemoveBranch(bb)
    rev := *br.Cond
    ii.ReverseBranchCondition(&rev)
    ii.InsertBranch(fn, bb, br.FBB, br.TBB, &rev)

    require.Equal(t, uint16(1), runSelect(t, fn, 7))
    require.Equal(t, uint16(1), runSelect(t, fn, 5))
    require.Equal(t, uint16(2), runSelect(t, fn, 3))

    /* the pseudo expansion does not change behavior either */
    require.True(t, ii.ExpandPostRAPseudos(fn))
    require.Equal(t, uint16(1), runSelect(t, fn, 7))
    require.Equal(t, uint16(2), runSelect(t, fn, 3))
}

func TestBranch_EqualityEndToEnd(t *testing.T) {
    /* "compare a, 5; branch-if-equal l1; jump l2" */
    ii := New(NMOS6502)
    fn := mir.NewFunc("eq")
    bb := fn.CreateBlock()
    l1 := fn.CreateBlock()
    l2 := fn.CreateBlock()
    end := fn.CreateBlock()

    fn.AtEnd(bb).Emit(mir.OpCMPImmTerm, mir.DefReg(mir.C), mir.UseReg(mir.A), mir.Imm(5))
    ii.InsertBranch(fn, bb, l1, l2, &Cond { Flag: mir.Z, Val: true })
    fn.AtEnd(l1).Emit(mir.OpLDImm, mir.DefReg(mir.X), mir.Imm(1))
    fn.AtEnd(l1).Emit(mir.OpJMP, mir.Target(end))
    fn.AtEnd(l2).Emit(mir.OpLDImm, mir.DefReg(mir.X), mir.Imm(2))

    br, ok := ii.AnalyzeBranch(bb)
    require.True(t, ok)
    require.Equal(t, l1, br.TBB)
    require.Equal(t, l2, br.FBB)
    require.Equal(t, &Cond { Flag: mir.Z, Val: true }, br.Cond)

    require.Equal(t, uint16(1), runSelect(t, fn, 5))
    require.Equal(t, uint16(2), runSelect(t, fn, 6))

    /* branch-if-not-equal after reversal, same observable behavior */
    ii.RemoveBranch(bb)
    rev := *br.Cond
    ii.ReverseBranchCondition(&rev)
    ii.InsertBranch(fn, bb, l2, l1, &rev)

    br, ok = ii.AnalyzeBranch(bb)
    require.True(t, ok)
    require.Equal(t, &Cond { Flag: mir.Z, Val: false }, br.Cond)
    require.Equal(t, uint16(1), runSelect(t, fn, 5))
    require.Equal(t, uint16(2), runSelect(t, fn, 6))
}

func TestBranch_DestBlock(t *testing.T) {
    ii := New(NMOS6502)
    fn := mir.NewFunc("dest")
    l1 := fn.CreateBlock()

    p := mir.NewInstr(mir.OpJMP, mir.Target(l1))
    require.Equal(t, l1, ii.BranchDestBlock(p))
    require.Panics(t, func() { ii.BranchDestBlock(mir.NewInstr(mir.OpLDImm)) })
}
