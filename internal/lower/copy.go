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
)

/* every supported class pairing resolves within this many recursive steps:
 * word decomposes to bytes, bytes to bits, plus one accumulator bounce */
const _MaxCopyDepth = 4

// CopyPhysReg synthesizes a sequence of real instructions at the insertion
// point that copies src into dst. The registers must have the same bit-width;
// they may belong to different classes, in which case the value is routed
// through whatever transfers the hardware actually has.
func (self InstrInfo) CopyPhysReg(b *mir.Builder, dst mir.Reg, src mir.Reg) {
    self.copyRegImpl(b, dst, src, 0)
}

func (self InstrInfo) isClass(b *mir.Builder, r mir.Reg, c mir.Class) bool {
    if r.IsPhysical() {
        return c.Contains(r)
    } else {
        return b.Func().ClassOf(r).HasSuperClassEq(c)
    }
}

func (self InstrInfo) copyRegImpl(b *mir.Builder, dst mir.Reg, src mir.Reg, depth int) {
    if dst == src {
        return
    }

    /* the recursion strictly narrows width classes, so it must bottom out */
    if depth > _MaxCopyDepth {
        panic(fmt.Sprintf("copyreg: recursion exceeded bound copying %s <- %s", dst, src))
    }

    /* pairing helper over both sides */
    areClasses := func(dc mir.Class, sc mir.Class) bool {
        return self.isClass(b, dst, dc) && self.isClass(b, src, sc)
    }

    switch {
        default: {
            panic(fmt.Sprintf("copyreg: unexpected physical register copy: %s <- %s", dst, src))
        }

        /* general purpose to general purpose: the only direct transfers are
         * through the accumulator, anything else bounces through it */
        case areClasses(mir.GPR, mir.GPR): {
            if self.isClass(b, src, mir.Ac) {
                if !self.isClass(b, dst, mir.XY) {
                    panic(fmt.Sprintf("copyreg: transfer from accumulator to non-index register %s", dst))
                }
                b.Emit(mir.OpTAx, mir.DefReg(dst), mir.UseReg(src))
            } else if self.isClass(b, dst, mir.Ac) {
                if !self.isClass(b, src, mir.XY) {
                    panic(fmt.Sprintf("copyreg: transfer to accumulator from non-index register %s", src))
                }
                b.Emit(mir.OpTxA, mir.DefReg(dst), mir.UseReg(src))
            } else {
                tmp := b.Func().CreateVReg(mir.Ac)
                self.copyRegImpl(b, tmp, src, depth + 1)
                self.copyRegImpl(b, dst, tmp, depth + 1)
            }
        }

        /* zero-page byte and general purpose: one store or load */
        case areClasses(mir.Imag8, mir.GPR): {
            b.Emit(mir.OpSTImag8, mir.DefReg(dst), mir.UseReg(src))
        }

        case areClasses(mir.GPR, mir.Imag8): {
            b.Emit(mir.OpLDImag8, mir.DefReg(dst), mir.UseReg(src))
        }

        /* zero-page byte to zero-page byte: bounce through a GPR */
        case areClasses(mir.Imag8, mir.Imag8): {
            tmp := b.Func().CreateVReg(mir.GPR)
            self.copyRegImpl(b, tmp, src, depth + 1)
            self.copyRegImpl(b, dst, tmp, depth + 1)
        }

        /* 16-bit pairs: two independent byte copies */
        case areClasses(mir.Imag16, mir.Imag16): {
            if !dst.IsPhysical() || !src.IsPhysical() {
                panic("copyreg: 16-bit copies must be physical by this stage")
            }
            self.copyRegImpl(b, mir.SubRegOf(dst, mir.SubLo), mir.SubRegOf(src, mir.SubLo), depth + 1)
            self.copyRegImpl(b, mir.SubRegOf(dst, mir.SubHi), mir.SubRegOf(src, mir.SubHi), depth + 1)
        }

        /* 1-bit copies, driven by whether either side has an 8-bit
         * super-register */
        case areClasses(mir.Anyi1, mir.Anyi1): {
            if !dst.IsPhysical() || !src.IsPhysical() {
                panic("copyreg: 1-bit copies must be physical by this stage")
            }
            self.copyBit(b, dst, src, depth)
        }
    }
}

func (self InstrInfo) copyBit(b *mir.Builder, dst mir.Reg, src mir.Reg, depth int) {
    src8 := mir.MatchingSuperReg(src, mir.SubLsb, mir.Anyi8)
    dst8 := mir.MatchingSuperReg(dst, mir.SubLsb, mir.Anyi8)

    if src8 != mir.NoReg {
        if dst8 != mir.NoReg {
            /* LSB writes are defined to write the whole 8-bit register, so
             * the byte copy subsumes the bit copy; that guarantee fails if
             * the next instruction still reads the rest of the byte */
            if p := b.Peek(); p != nil && p.ReadsReg(dst8) {
                panic(fmt.Sprintf("copyreg: full-width LSB write would clobber %s read by %s", dst8, p))
            }
            self.copyRegImpl(b, dst8, src8, depth + 1)
        } else if dst == mir.C {
            /* C = src >= 1 */
            if !mir.GPR.Contains(src8) {
                tmp := b.Func().CreateVReg(mir.GPR)
                self.copyRegImpl(b, tmp, src8, depth + 1)
                src8 = tmp
            }
            b.Emit(mir.OpCMPImm, mir.DefReg(mir.C), mir.UseReg(src8), mir.Imm(1))
        } else if dst == mir.V {
            /* no direct way to load V: bounce the byte over the hardware
             * stack to capture Z, then select V from it. The NMOS parts can
             * only push the accumulator */
            stk := mir.Ac
            if self.Variant.Has65C02() {
                stk = mir.GPR
            }
            if stk.Contains(src8) {
                b.Emit(mir.OpPH, mir.UseReg(src8))
                pl := b.Emit(mir.OpPL, mir.DefReg(src8))
                pl.AddImplicitDef(mir.NZ)
            } else {
                tmp := b.Func().CreateVReg(stk)
                self.copyRegImpl(b, tmp, src8, depth + 1)
                b.Last().AddImplicitDef(mir.NZ)
            }
            b.Emit(mir.OpSelectImm, mir.DefReg(mir.V), mir.UseReg(mir.Z), mir.Imm(0), mir.Imm(-1))
        } else {
            panic(fmt.Sprintf("copyreg: unexpected flag destination %s", dst))
        }
    } else {
        if dst8 != mir.NoReg {
            /* materialize the flag as 0/1 in the destination byte, bouncing
             * through a GPR when the byte is not directly loadable */
            tmp := dst8
            if !mir.GPR.Contains(tmp) {
                tmp = b.Func().CreateVReg(mir.GPR)
            }
            b.Emit(mir.OpSelectImm, mir.DefReg(tmp), mir.UseReg(src), mir.Imm(1), mir.Imm(0))
            if tmp != dst8 {
                self.copyRegImpl(b, dst8, tmp, depth + 1)
            }
        } else {
            b.Emit(mir.OpSelectImm, mir.DefReg(dst), mir.UseReg(src), mir.Imm(-1), mir.Imm(0))
        }
    }
}
