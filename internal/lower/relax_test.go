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

func fillBlock(fn *mir.Func, bb *mir.Block, n int) {
    for i := 0; i < n; i++ {
        fn.AtEnd(bb).Emit(mir.OpLDImm, mir.DefReg(mir.Y), mir.Imm(0))
    }
}

func TestRelax_ShortBranchStays(t *testing.T) {
    ii := New(CMOS65C02)
    fn := mir.NewFunc("near")
    bb := fn.CreateBlock()
    mid := fn.CreateBlock()
    far := fn.CreateBlock()

    fillBlock(fn, mid, 10)
    ii.InsertBranch(fn, bb, far, nil, nil)

    require.False(t, RelaxBranches { II: ii }.Apply(fn))
    require.Equal(t, mir.OpBRA, bb.Ins[0].Op)
}

func TestRelax_FarUnconditional(t *testing.T) {
    ii := New(CMOS65C02)
    fn := mir.NewFunc("far")
    bb := fn.CreateBlock()
    mid := fn.CreateBlock()
    far := fn.CreateBlock()

    /* 50 instructions at 3 bytes each puts far well past the short range */
    fillBlock(fn, mid, 50)
    ii.InsertBranch(fn, bb, far, nil, nil)
    require.Equal(t, mir.OpBRA, bb.Ins[0].Op)

    require.True(t, RelaxBranches { II: ii }.Apply(fn))
    require.Len(t, bb.Ins, 1)
    require.Equal(t, mir.OpJMP, bb.Ins[0].Op)
    require.Equal(t, far, bb.Ins[0].Args[0].Block)
}

func TestRelax_FarConditionalWithFalseEdge(t *testing.T) {
    ii := New(NMOS6502)
    fn := mir.NewFunc("farcond")
    bb := fn.CreateBlock()
    near := fn.CreateBlock()
    far := fn.CreateBlock()

    fillBlock(fn, near, 50)
    ii.InsertBranch(fn, bb, far, near, &Cond { Flag: mir.C, Val: true })

    require.True(t, RelaxBranches { II: ii }.Apply(fn))

    /* the conditional was reversed onto the short edge, the long edge took
     * the unconditional jump */
    br, ok := ii.AnalyzeBranch(bb)
    require.True(t, ok)
    require.Equal(t, near, br.TBB)
    require.Equal(t, far, br.FBB)
    require.Equal(t, &Cond { Flag: mir.C, Val: false }, br.Cond)
    require.Equal(t, mir.OpJMP, bb.Ins[len(bb.Ins) - 1].Op)
}

func TestRelax_FarConditionalFallthrough(t *testing.T) {
    ii := New(NMOS6502)
    fn := mir.NewFunc("tramp")
    bb := fn.CreateBlock()
    near := fn.CreateBlock()
    far := fn.CreateBlock()
    end := fn.CreateBlock()

    fn.AtEnd(bb).Emit(mir.OpCMPImmTerm, mir.DefReg(mir.C), mir.UseReg(mir.A), mir.Imm(5))
    ii.InsertBranch(fn, bb, far, nil, &Cond { Flag: mir.C, Val: true })
    fillBlock(fn, near, 50)
    fn.AtEnd(near).Emit(mir.OpLDImm, mir.DefReg(mir.X), mir.Imm(2))
    fn.AtEnd(near).Emit(mir.OpJMP, mir.Target(end))
    fn.AtEnd(far).Emit(mir.OpLDImm, mir.DefReg(mir.X), mir.Imm(1))
    fn.AtEnd(far).Emit(mir.OpJMP, mir.Target(end))

    require.True(t, RelaxBranches { II: ii }.Apply(fn))

    /* a trampoline block was inserted after bb holding the long jump, and
     * the reversed conditional hops over it to the old fallthrough */
    require.Len(t, fn.Blocks, 5)
    nb := fn.Blocks[1]
    require.Len(t, nb.Ins, 1)
    require.Equal(t, mir.OpJMP, nb.Ins[0].Op)
    require.Equal(t, far, nb.Ins[0].Args[0].Block)

    br, ok := ii.AnalyzeBranch(bb)
    require.True(t, ok)
    require.Equal(t, near, br.TBB)
    require.Nil(t, br.FBB)
    require.Equal(t, &Cond { Flag: mir.C, Val: false }, br.Cond)

    /* behavior is preserved on both edges */
    for _, tc := range []struct { a uint16; x uint16 } { { 7, 1 }, { 3, 2 } } {
        m := emu.New(fn)
        m.Set(mir.A, tc.a)
        m.Run(bb)
        require.Equal(t, tc.x, m.Get(mir.X))
    }
}

func TestRelax_FarConditionalBothEdges(t *testing.T) {
    /* both the taken and the false edge lie past the filler, so reversing
     * alone can never bring the conditional into range; the pass must reach
     * a fixed point with a trampoline instead of swapping edges forever */
    ii := New(NMOS6502)
    fn := mir.NewFunc("bothfar")
    bb := fn.CreateBlock()
    mid := fn.CreateBlock()
    t1 := fn.CreateBlock()
    t2 := fn.CreateBlock()
    end := fn.CreateBlock()

    ii.InsertBranch(fn, bb, t1, t2, &Cond { Flag: mir.C, Val: true })
    fillBlock(fn, mid, 100)
    fn.AtEnd(t1).Emit(mir.OpLDImm, mir.DefReg(mir.X), mir.Imm(1))
    fn.AtEnd(t1).Emit(mir.OpJMP, mir.Target(end))
    fn.AtEnd(t2).Emit(mir.OpLDImm, mir.DefReg(mir.X), mir.Imm(2))
    fn.AtEnd(t2).Emit(mir.OpJMP, mir.Target(end))

    require.True(t, RelaxBranches { II: ii }.Apply(fn))

    /* the trampoline right after bb carries the false edge's jump */
    nb := fn.Blocks[1]
    require.Len(t, nb.Ins, 1)
    require.Equal(t, mir.OpJMP, nb.Ins[0].Op)
    require.Equal(t, t2, nb.Ins[0].Args[0].Block)

    br, ok := ii.AnalyzeBranch(bb)
    require.True(t, ok)
    require.Equal(t, nb, br.TBB)
    require.Equal(t, t1, br.FBB)
    require.Equal(t, &Cond { Flag: mir.C, Val: false }, br.Cond)

    /* behavior is preserved on both edges */
    for _, tc := range []struct { c uint16; x uint16 } { { 1, 1 }, { 0, 2 } } {
        m := emu.New(fn)
        m.Set(mir.C, tc.c)
        m.Run(bb)
        require.Equal(t, tc.x, m.Get(mir.X))
    }

    /* and every remaining branch is in range */
    off := make(map[*mir.Block]int64)
    pos := int64(0)
    for _, p := range fn.Blocks {
        off[p] = pos
        pos += int64(3 * len(p.Ins))
    }
    for _, p := range fn.Blocks {
        for i, q := range p.Ins {
            if q.Op.IsBranch() {
                d := off[ii.BranchDestBlock(q)] - (off[p] + int64(3 * i))
                require.True(t, ii.BranchOffsetInRange(q.Op, d), "%s at %d", q, d)
            }
        }
    }
}

func TestRelax_EveryBranchInRangeAfter(t *testing.T) {
    ii := New(CMOS65C02)
    fn := mir.NewFunc("post")
    b0 := fn.CreateBlock()
    b1 := fn.CreateBlock()
    b2 := fn.CreateBlock()
    b3 := fn.CreateBlock()

    fillBlock(fn, b1, 60)
    ii.InsertBranch(fn, b0, b3, nil, nil)
    ii.InsertBranch(fn, b1, b3, nil, nil)
    fillBlock(fn, b2, 60)

    RelaxBranches { II: ii }.Apply(fn)

    /* recompute offsets by hand and verify the invariant the pass promises */
    off := make(map[*mir.Block]int64)
    pos := int64(0)
    for _, bb := range fn.Blocks {
        off[bb] = pos
        pos += int64(3 * len(bb.Ins))
    }
    for _, bb := range fn.Blocks {
        for i, p := range bb.Ins {
            if p.Op.IsBranch() {
                d := off[ii.BranchDestBlock(p)] - (off[bb] + int64(3 * i))
                require.True(t, ii.BranchOffsetInRange(p.Op, d), "%s at %d", p, d)
            }
        }
    }
}
