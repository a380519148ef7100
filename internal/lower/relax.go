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
    `github.com/davecgh/go-spew/spew`
    `github.com/oleiade/lane`
    `github.com/retrocc/mos6502/internal/mir`
    `github.com/retrocc/mos6502/internal/opts`
)

// RelaxBranches rewrites short-form branches whose displacement cannot fit,
// substituting the long-range jump form through the indirect-insertion entry
// point. Distances are measured with the fixed conservative size estimate, so
// a branch accepted here can never turn out too short after encoding.
type RelaxBranches struct {
    II InstrInfo
}

func (self RelaxBranches) Apply(fn *mir.Func) bool {
    changed := false
    queued := make(map[*mir.Block]bool, len(fn.Blocks))

    /* every edit shifts the blocks after it, so iterate to a fixed point */
    q := lane.NewQueue()
    for _, bb := range fn.Blocks {
        q.Enqueue(bb)
        queued[bb] = true
    }

    for !q.Empty() {
        bb := q.Dequeue().(*mir.Block)
        queued[bb] = false

        if !self.relaxBlock(fn, bb) {
            continue
        }

        /* distances moved under every other block too */
        changed = true
        for _, p := range fn.Blocks {
            if !queued[p] {
                q.Enqueue(p)
                queued[p] = true
            }
        }
    }

    return changed
}

/* block start offsets under the conservative per-instruction estimate */
func (self RelaxBranches) offsets(fn *mir.Func) map[*mir.Block]int64 {
    off := int64(0)
    ret := make(map[*mir.Block]int64, len(fn.Blocks))

    for _, bb := range fn.Blocks {
        ret[bb] = off
        for _, p := range bb.Ins {
            off += int64(self.II.InstSizeInBytes(p))
        }
    }

    if opts.DebugRelax {
        spew.Dump(ret)
    }
    return ret
}

func (self RelaxBranches) layoutSuccessor(fn *mir.Func, bb *mir.Block) *mir.Block {
    for i, p := range fn.Blocks {
        if p == bb && i + 1 < len(fn.Blocks) {
            return fn.Blocks[i + 1]
        }
    }
    return nil
}

func (self RelaxBranches) relaxBlock(fn *mir.Func, bb *mir.Block) bool {
    br, ok := self.II.AnalyzeBranch(bb)
    if !ok || br.Fallthrough() {
        return false
    }

    /* advance to the first branch */
    i := bb.FirstTerminator()
    for i < len(bb.Ins) && bb.Ins[i].Op.IsCompare() {
        i++
    }

    /* find a branch whose target is out of reach */
    off := self.offsets(fn)
    for k := i; k < len(bb.Ins); k++ {
        p := bb.Ins[k]
        if !p.Op.IsBranch() {
            continue
        }

        dst := self.II.BranchDestBlock(p)
        src := off[bb] + int64(3 * k)
        if self.II.BranchOffsetInRange(p.Op, off[dst] - src) {
            continue
        }

        if p.Op.IsUnconditional() {
            /* drop the short form, insert the long-range jump */
            bb.Ins = append(bb.Ins[:k], bb.Ins[k + 1:]...)
            self.II.InsertIndirectBranch(fn, bb, dst)
            return true
        }

        /* conditional out of range: reverse it so it covers the short hop
         * and let an unconditional form take the long one */
        rev := *br.Cond
        self.II.ReverseBranchCondition(&rev)
        self.II.RemoveBranch(bb)

        if br.FBB != nil {
            /* reversing only helps when the false edge itself is a short
             * hop from here */
            if self.II.BranchOffsetInRange(mir.OpBR, off[br.FBB] - src) {
                self.II.InsertBranch(fn, bb, br.FBB, br.TBB, &rev)
                return true
            }

            /* both edges out of range: hop over a fresh trampoline block
             * holding the false edge's jump, and take the true edge with
             * the long-range form */
            nb := fn.InsertBlockAfter(bb)
            self.II.InsertIndirectBranch(fn, nb, br.FBB)
            self.II.InsertBranch(fn, bb, nb, br.TBB, &rev)
            return true
        }

        /* fallthrough false edge: branch over a fresh trampoline block
         * holding the long-range jump */
        succ := self.layoutSuccessor(fn, bb)
        if succ == nil {
            panic("relax: conditional branch past the last block cannot be relaxed")
        }
        nb := fn.InsertBlockAfter(bb)
        self.II.InsertIndirectBranch(fn, nb, br.TBB)
        self.II.InsertBranch(fn, bb, succ, nil, &rev)
        return true
    }

    return false
}
