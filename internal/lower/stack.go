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

// StoreRegToStackSlot spills reg into frame slot fi at the insertion point.
func (self InstrInfo) StoreRegToStackSlot(b *mir.Builder, reg mir.Reg, kill bool, fi int) {
    self.loadStoreSlot(b, reg, kill, fi, false)
}

// LoadRegFromStackSlot reloads frame slot fi into reg at the insertion point.
func (self InstrInfo) LoadRegFromStackSlot(b *mir.Builder, reg mir.Reg, fi int) {
    self.loadStoreSlot(b, reg, false, fi, true)
}

func (self InstrInfo) loadStoreSlot(b *mir.Builder, reg mir.Reg, kill bool, fi int, isLoad bool) {
    fn := b.Func()

    /* a function that may recurse lives on the soft stack: the slot address
     * is a run-time pointer, so emit a pseudo carrying a 16-bit pointer
     * temporary and leave it for frame index elimination to resolve */
    if fn.Recurses {
        ptr := fn.CreateVReg(mir.Imag16)
        if isLoad {
            pd := mir.DefReg(ptr)
            pd.EarlyClobber = true
            b.Emit(mir.OpLDStk, mir.DefReg(reg), pd, mir.Frame(fi), mir.Imm(0))
        } else {
            pd := mir.DefReg(ptr)
            pd.EarlyClobber = true
            mo := mir.UseReg(reg)
            mo.Kill = kill
            b.Emit(mir.OpSTStk, pd, mo, mir.Frame(fi), mir.Imm(0))
        }
        return
    }

    /* static stack: offsets are fixed, 16-bit values split into two byte
     * accesses at consecutive offsets */
    if self.isClass(b, reg, mir.Imag16) {
        lo := mir.Operand { Kind: mir.OpdReg, Def: isLoad }
        hi := lo
        tmp := reg

        if reg.IsPhysical() {
            lo.Reg = mir.SubRegOf(reg, mir.SubLo)
            hi.Reg = mir.SubRegOf(reg, mir.SubHi)
        } else {
            /* live ranges for the original register are already computed;
             * introducing sub-register operands needs a fresh register so
             * the allocator sees sub-register live ranges at all */
            tmp = fn.CreateVReg(mir.Imag16)
            lo.Reg = tmp
            lo.Sub = mir.SubLo
            lo.Undef = lo.Def
            hi.Reg = tmp
            hi.Sub = mir.SubHi
        }

        if !isLoad {
            if tmp != reg {
                b.Emit(mir.OpCOPY, mir.DefReg(tmp), mir.UseReg(reg))
            }

            /* partial-definition tracking is gone at this stage, so fence
             * the whole register live before storing both halves */
            b.Emit(mir.OpKILL, mir.DefReg(tmp), mir.UseReg(tmp))
        }

        self.byteSlot(b, lo, fi, 0)
        self.byteSlot(b, hi, fi, 1)

        if isLoad && tmp != reg {
            b.Emit(mir.OpCOPY, mir.DefReg(reg), mir.UseReg(tmp))
        }
        return
    }

    /* single byte or bit */
    mo := mir.Operand { Kind: mir.OpdReg, Reg: reg, Def: isLoad }
    self.byteSlot(b, mo, fi, 0)
}

// byteSlot emits one byte of static stack traffic for the register operand
// mo. Only general-purpose byte registers can touch memory directly; every
// other class bounces through one.
func (self InstrInfo) byteSlot(b *mir.Builder, mo mir.Operand, fi int, off int64) {
    fn := b.Func()
    reg := mo.Reg

    if mo.Kind != mir.OpdReg {
        panic(fmt.Sprintf("stackslot: not a register operand: %s", mo))
    }

    /* promote a bit register to its byte super-register when the selector
     * names exactly the low bit */
    if reg.IsPhysical() && mir.GPRLsb.Contains(reg) {
        reg = mir.MatchingSuperReg(reg, mir.SubLsb, mir.GPR)
        mo.Reg = reg
        mo.Sub = mir.SubNone
    } else if reg.IsVirtual() && fn.ClassOf(reg).HasSuperClassEq(mir.GPR) && mo.Sub == mir.SubLsb {
        mo.Sub = mir.SubNone
    }

    /* direct access for general-purpose bytes */
    direct := (reg.IsPhysical() && mir.GPR.Contains(reg)) ||
        (reg.IsVirtual() && fn.ClassOf(reg).HasSuperClassEq(mir.GPR) && mo.Sub == mir.SubNone)

    if direct {
        if mo.Def {
            b.Emit(mir.OpLDAbsOffset, mo, mir.Frame(fi), mir.Imm(off))
        } else {
            b.Emit(mir.OpSTAbsOffset, mo, mir.Frame(fi), mir.Imm(off))
        }
        return
    }

    /* everything else goes through a fresh general-purpose temporary,
     * keeping the bit-vs-byte sub-register tagging across the bounce */
    isBit := (reg.IsPhysical() && mir.Anyi1.Contains(reg)) ||
        (reg.IsVirtual() && (fn.ClassOf(reg).HasSuperClassEq(mir.Anyi1) || mo.Sub == mir.SubLsb))

    tmp := mir.Operand {
        Kind : mir.OpdReg,
        Reg  : fn.CreateVReg(mir.GPR),
        Def  : mo.Def,
    }

    if !mo.Def {
        /* store: define the temporary from mo, then recurse once */
        td := tmp
        td.Def = true
        if isBit {
            td.Sub = mir.SubLsb
            td.Undef = true
        }
        b.Emit(mir.OpCOPY, td, mo)
        self.byteSlot(b, tmp, fi, off)
    } else {
        /* load: recurse once, then define mo from the temporary */
        self.byteSlot(b, tmp, fi, off)
        tu := tmp
        tu.Def = false
        if isBit {
            tu.Sub = mir.SubLsb
        }
        b.Emit(mir.OpCOPY, mo, tu)
    }
}
