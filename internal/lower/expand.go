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

    `github.com/davecgh/go-spew/spew`
    `github.com/retrocc/mos6502/internal/mir`
    `github.com/retrocc/mos6502/internal/opts`
)

// ExpandPostRAPseudos rewrites every remaining pseudo instruction of fn into
// real opcodes. It runs once, after register assignment is final, and reports
// whether anything was rewritten. Expanding a pseudo erases it; the pass must
// not be run twice over the same instructions.
func (self InstrInfo) ExpandPostRAPseudos(fn *mir.Func) bool {
    changed := false

    /* process every instruction of every block in place */
    for _, bb := range fn.Blocks {
        for i := 0; i < len(bb.Ins); i++ {
            rr, ok := self.ExpandPseudo(fn, bb.Ins[i])
            if !ok {
                continue
            }
            if opts.DebugExpand {
                spew.Dump(bb.Ins[i], rr)
            }
            bb.Ins = append(bb.Ins[:i], append(rr, bb.Ins[i + 1:]...)...)
            i += len(rr) - 1
            changed = true
        }
    }

    return changed
}

// ExpandPseudo computes the real-instruction replacement for a single pseudo.
// It never mutates p; instructions outside the dispatch table return
// (nil, false).
func (self InstrInfo) ExpandPseudo(fn *mir.Func, p *mir.Instr) ([]*mir.Instr, bool) {
    switch p.Op {
        default                              : return nil, false
        case mir.OpCMPImmTerm                : return self.expandCMPTerm(p, mir.OpCMPImm), true
        case mir.OpCMPImag8Term              : return self.expandCMPTerm(p, mir.OpCMPImag8), true
        case mir.OpSBCNZImag8                : return self.expandSBCNZ(p), true
        case mir.OpLDIdx                     : return self.expandLDIdx(fn, p), true
        case mir.OpLDImm1                    : return self.expandLDImm1(p), true
        case mir.OpSetSPLo, mir.OpSetSPHi    : return self.expandSetSP(fn, p), true
    }
}

/* a terminated compare becomes the real compare carrying the combined flags
 * output its consumer needs */
func (self InstrInfo) expandCMPTerm(p *mir.Instr, op mir.Op) []*mir.Instr {
    q := p.Clone()
    q.Op = op
    q.AddImplicitDef(mir.NZ)
    return []*mir.Instr { q }
}

/* subtract-with-borrow with selectable flag outputs: emit the real subtract,
 * then materialize at most one of the N or Z outputs as a 0/-1 select */
func (self InstrInfo) expandSBCNZ(p *mir.Instr) []*mir.Instr {
    sbc := mir.NewInstr(
        mir.OpSBCImag8,
        p.Args[0], p.Args[1], p.Args[3],
        p.Args[5], p.Args[6], p.Args[7],
    )

    /* pick the requested flag output */
    nzOut := p.Args[2].Reg
    nzIn := mir.N

    if nzOut == mir.NoReg {
        nzOut = p.Args[4].Reg
        nzIn = mir.Z
    } else if p.Args[4].Reg != mir.NoReg {
        panic("expand: at most one of the N and Z outputs of sbcnzimag8 may be requested")
    }

    /* no output requested: the bare subtract suffices */
    if nzOut == mir.NoReg {
        return []*mir.Instr { sbc }
    }

    /* route the flags through the select */
    sbc.AddImplicitDef(mir.NZ)
    sel := mir.NewInstr(
        mir.OpSelectImm,
        mir.DefReg(nzOut),
        mir.UseReg(nzIn),
        mir.Imm(-1),
        mir.Imm(0),
    )
    return []*mir.Instr { sbc, sel }
}

/* indexed load: the hardware cannot load into its own index register, so
 * that case routes through the accumulator and transfers out */
func (self InstrInfo) expandLDIdx(fn *mir.Func, p *mir.Instr) []*mir.Instr {
    if p.Args[0].Reg == p.Args[2].Reg {
        tmp := fn.CreateVReg(mir.Ac)
        return []*mir.Instr {
            mir.NewInstr(mir.OpLDAIdx, mir.DefReg(tmp), p.Args[1], p.Args[2]),
            mir.NewInstr(mir.OpTAx, p.Args[0], mir.UseReg(tmp)),
        }
    }

    var op mir.Op
    switch p.Args[0].Reg {
        case mir.A : op = mir.OpLDAIdx
        case mir.X : op = mir.OpLDXIdx
        case mir.Y : op = mir.OpLDYIdx
        default    : panic(fmt.Sprintf("expand: bad destination for indexed load: %s", p.Args[0].Reg))
    }

    q := p.Clone()
    q.Op = op
    return []*mir.Instr { q }
}

/* single-bit immediate load */
func (self InstrInfo) expandLDImm1(p *mir.Instr) []*mir.Instr {
    dst := p.Args[0].Reg
    val := p.Args[1].Imm

    switch dst {
        /* carry has a direct set/clear immediate form */
        case mir.C: {
            q := p.Clone()
            q.Op = mir.OpLDCImm
            return []*mir.Instr { q }
        }

        /* overflow can only be cleared directly; setting it goes through a
         * bit test on a known byte with bit 6 set */
        case mir.V: {
            if val == 0 {
                return []*mir.Instr { mir.NewInstr(mir.OpCLV, mir.DefReg(mir.V)) }
            }
            a := mir.UseReg(mir.A)
            a.Undef = true
            return []*mir.Instr {
                mir.NewInstr(mir.OpBITAbs, mir.DefReg(mir.V), a, mir.Symbol("__set_v")),
            }
        }

        /* general-purpose bit positions widen to a byte immediate load on
         * the matching super-register */
        default: {
            dst8 := mir.MatchingSuperReg(dst, mir.SubLsb, mir.Anyi8)
            if dst8 == mir.NoReg || !mir.GPR.Contains(dst8) {
                panic(fmt.Sprintf("expand: unexpected destination for 1-bit immediate load: %s", dst))
            }
            v := int64(0)
            if val != 0 {
                v = 1
            }
            return []*mir.Instr {
                mir.NewInstr(mir.OpLDImm, mir.DefReg(dst8), mir.Imm(v)),
            }
        }
    }
}

/* split stack-pointer writes lower to plain copies into the zero-page
 * shadow of the soft stack pointer */
func (self InstrInfo) expandSetSP(fn *mir.Func, p *mir.Instr) []*mir.Instr {
    dst := mir.RC0
    if p.Op == mir.OpSetSPHi {
        dst = mir.RC1
    }

    /* synthesize the copy into a detached scratch block */
    bb := &mir.Block { Id: -1 }
    self.copyRegImpl(fn.At(bb, 0), dst, p.Args[0].Reg, 0)
    return bb.Ins
}
