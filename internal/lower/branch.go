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
    `fmt`

    `github.com/retrocc/mos6502/internal/mir`
    `github.com/samber/lo`
)

// Cond is a branch condition: the flag bit tested and the polarity the branch
// is taken on.
type Cond struct {
    Flag mir.Reg
    Val  bool
}

func (self Cond) String() string {
    return fmt.Sprintf("(%s, %v)", self.Flag, self.Val)
}

// Branches is the analyzed shape of a block's terminator sequence. TBB is the
// true-edge target of the first branch; FBB, if present, is the false-edge
// target of a trailing unconditional branch; Cond is nil for unconditional
// control flow. A nil TBB means the block falls through to its layout
// successor.
type Branches struct {
    TBB  *mir.Block
    FBB  *mir.Block
    Cond *Cond
}

// Fallthrough reports whether the block has no branches at all.
func (self Branches) Fallthrough() bool {
    return self.TBB == nil
}

// BranchDestBlock is the target block of a branch instruction.
func (self InstrInfo) BranchDestBlock(p *mir.Instr) *mir.Block {
    switch p.Op {
        case mir.OpBR, mir.OpBRA, mir.OpJMP : return p.Args[0].Block
        default                             : panic("branch: bad branch opcode: " + p.Op.String())
    }
}

// AnalyzeBranch classifies the terminator sequence of bb. The second return
// value is false when the sequence is not in a supported shape, in which case
// callers must leave the block alone.
func (self InstrInfo) AnalyzeBranch(bb *mir.Block) (Branches, bool) {
    var ret Branches

    /* comparison terminators feed the branch's implicit flag input but do
     * not affect control flow themselves */
    terms := bb.Ins[bb.FirstTerminator():]
    terms = lo.DropWhile(terms, func(p *mir.Instr) bool { return p.Op.IsCompare() })

    /* no branches: falls through to the layout successor */
    if len(terms) == 0 {
        return ret, true
    }

    /* a non-branch or not-yet-lowered terminator cannot be analyzed */
    first := terms[0]
    if !first.Op.IsBranch() || first.Op.IsAbstract() {
        return ret, false
    }

    /* the first branch always forms the true edge */
    ret.TBB = self.BranchDestBlock(first)
    if first.Op.IsConditional() {
        ret.Cond = &Cond {
            Flag : first.Args[1].Reg,
            Val  : first.Args[2].Imm != 0,
        }
    }

    /* single branch: conditional falls through otherwise */
    if len(terms) == 1 {
        return ret, true
    }

    /* only a conditional branch followed by exactly one unconditional
     * branch is analyzable */
    second := terms[1]
    if !second.Op.IsBranch() || len(terms) > 2 {
        return Branches{}, false
    }
    if !second.Op.IsUnconditional() || second.Op.IsAbstract() {
        return Branches{}, false
    }

    /* the second branch forms the false edge */
    ret.FBB = self.BranchDestBlock(second)
    return ret, true
}

// RemoveBranch erases every terminator from the first branch onwards,
// reporting the count and the conservative byte estimate removed. It may only
// be called after AnalyzeBranch succeeded, so the terminators are known to be
// comparisons followed by branches.
func (self InstrInfo) RemoveBranch(bb *mir.Block) (int, int) {
    i := bb.FirstTerminator()
    for i < len(bb.Ins) && bb.Ins[i].Op.IsCompare() {
        i++
    }

    removed := len(bb.Ins) - i
    bytes := lo.SumBy(bb.Ins[i:], self.InstSizeInBytes)
    bb.Ins = bb.Ins[:i]
    return removed, bytes
}

// InsertBranch appends a fresh terminator pair for the given edges. With a
// condition, tbb is the taken target and fbb (optional) the fall-back; without
// one, tbb is reached unconditionally. Short forms are preferred; a branch
// later found out of range is fixed up through InsertIndirectBranch.
func (self InstrInfo) InsertBranch(fn *mir.Func, bb *mir.Block, tbb *mir.Block, fbb *mir.Block, cond *Cond) (int, int) {
    n := 0
    b := fn.AtEnd(bb)
    ubb := tbb

    if cond != nil {
        if tbb == nil {
            panic("branch: conditional insertion needs a taken target")
        }
        v := int64(0)
        if cond.Val {
            v = 1
        }
        b.Emit(mir.OpBR, mir.Target(tbb), mir.UseReg(cond.Flag), mir.Imm(v))
        ubb = fbb
        n++
    }

    if ubb != nil {
        /* with 65C02 assume the short form; relaxation substitutes a JMP
         * when the displacement does not fit */
        op := mir.OpJMP
        if self.Variant.Has65C02() {
            op = mir.OpBRA
        }
        b.Emit(op, mir.Target(ubb))
        n++
    }

    return n, n * 3
}

// InsertIndirectBranch appends a long-range unconditional jump to dest. This
// is the fixup entry point used by branch relaxation when a short-form
// displacement check failed; the JMP form reaches any address.
func (self InstrInfo) InsertIndirectBranch(fn *mir.Func, bb *mir.Block, dest *mir.Block) int {
    p := fn.AtEnd(bb).Emit(mir.OpJMP, mir.Target(dest))
    return self.InstSizeInBytes(p)
}

// ReverseBranchCondition flips the polarity of a condition in place. Every
// condition here is a boolean flag test, so this always succeeds.
func (self InstrInfo) ReverseBranchCondition(c *Cond) {
    c.Val = !c.Val
}

// BranchOffsetInRange reports whether a branch opcode can span the given
// displacement, measured from the start of the branch instruction. The short
// relative forms cover [-128, 127] from the decode point two bytes in, hence
// [-126, 129] from the instruction start.
func (self InstrInfo) BranchOffsetInRange(op mir.Op, off int64) bool {
    switch op {
        case mir.OpBR, mir.OpBRA : return -126 <= off && off <= 129
        case mir.OpJMP           : return true
        default                  : panic("branch: bad branch opcode: " + op.String())
    }
}
