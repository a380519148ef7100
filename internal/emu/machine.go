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

// Package emu is a behavioral model of the instruction subset produced by the
// lowering layer. It exists to check lowered sequences against the semantics
// of the originals, so it favors observability over cycle accuracy: virtual
// registers execute as ordinary storage cells and frame slots are laid out in
// a flat byte array.
package emu

import (
    `fmt`

    `github.com/retrocc/mos6502/internal/mir`
)

const _MaxSteps = 65536

// Machine holds the architectural state for one function: the hardware
// registers and flags, the imaginary zero-page bytes, the hardware stack, the
// frame memory and one cell per virtual register.
type Machine struct {
    a     uint8
    x     uint8
    y     uint8
    c     bool
    v     bool
    n     bool
    z     bool
    rc    [32]uint8
    stk   []uint8
    mem   []uint8
    fun   *mir.Func
    base  []int
    cells map[int]uint16
}

// New builds a machine for fn, laying out its frame slots back to back with
// their declared alignment.
func New(fn *mir.Func) *Machine {
    off := 0
    base := make([]int, len(fn.Slots))

    for i, s := range fn.Slots {
        if s.Align > 1 && off % s.Align != 0 {
            off += s.Align - off % s.Align
        }
        base[i] = off
        off += s.Size
    }

    return &Machine {
        fun   : fn,
        mem   : make([]uint8, off),
        base  : base,
        cells : make(map[int]uint16),
    }
}

// Get reads the current value of a register: bytes and bits for physical
// registers, the full cell for virtual ones.
func (self *Machine) Get(r mir.Reg) uint16 {
    if r.IsVirtual() {
        return self.cells[r.Index()]
    } else {
        return self.getPhys(r, mir.SubNone)
    }
}

// Set writes a register the same way.
func (self *Machine) Set(r mir.Reg, v uint16) {
    if r.IsVirtual() {
        self.cells[r.Index()] = v
    } else {
        self.setPhys(r, mir.SubNone, v)
    }
}

// Flag reads one of the C, V, N, Z flag bits.
func (self *Machine) Flag(r mir.Reg) bool {
    return self.Get(r) != 0
}

// SetFlag writes one of the C, V, N, Z flag bits.
func (self *Machine) SetFlag(r mir.Reg, v bool) {
    if v {
        self.Set(r, 1)
    } else {
        self.Set(r, 0)
    }
}

// Slot reads byte off of frame slot fi.
func (self *Machine) Slot(fi int, off int64) uint8 {
    return self.mem[self.base[fi] + int(off)]
}

// SetSlot writes byte off of frame slot fi.
func (self *Machine) SetSlot(fi int, off int64, v uint8) {
    self.mem[self.base[fi] + int(off)] = v
}

// Run executes from the start of entry, following branches, until control
// falls past the last block of the function.
func (self *Machine) Run(entry *mir.Block) {
    bb := entry
    steps := 0

    for bb != nil {
        next := (*mir.Block)(nil)
        taken := false

        for _, p := range bb.Ins {
            if steps++; steps > _MaxSteps {
                panic("emu: step budget exceeded, control flow diverged")
            }
            if p.Op.IsBranch() {
                if next, taken = self.branch(p); taken {
                    break
                }
                continue
            }
            self.exec(p)
        }

        if taken {
            bb = next
        } else {
            bb = self.layoutSuccessor(bb)
        }
    }
}

// RunBlock executes the instructions of a single block in order, ignoring
// control flow.
func (self *Machine) RunBlock(bb *mir.Block) {
    for _, p := range bb.Ins {
        if p.Op.IsBranch() {
            continue
        }
        self.exec(p)
    }
}

func (self *Machine) layoutSuccessor(bb *mir.Block) *mir.Block {
    for i, p := range self.fun.Blocks {
        if p == bb && i + 1 < len(self.fun.Blocks) {
            return self.fun.Blocks[i + 1]
        }
    }
    return nil
}

func (self *Machine) branch(p *mir.Instr) (*mir.Block, bool) {
    switch p.Op {
        case mir.OpBRA, mir.OpJMP : return p.Args[0].Block, true
        case mir.OpBR             : return p.Args[0].Block, self.Flag(p.Args[1].Reg) == (p.Args[2].Imm != 0)
        default                   : panic("emu: bad branch opcode: " + p.Op.String())
    }
}

/* flag helpers */

func (self *Machine) setNZ(v uint8) {
    self.n = v & 0x80 != 0
    self.z = v == 0
}

func b2u(v bool) uint8 {
    if v {
        return 1
    } else {
        return 0
    }
}

/* physical register file, addressed through the aliasing rules: bit registers
 * read the low bit of their byte, bit writes store the full byte, 16-bit
 * pairs decompose into their zero-page bytes */

func (self *Machine) getPhys(r mir.Reg, sub mir.SubIdx) uint16 {
    if sub != mir.SubNone {
        if r = mir.SubRegOf(r, sub); r == mir.NoReg {
            panic("emu: bad sub-register read")
        }
    }

    switch {
        case r == mir.A : return uint16(self.a)
        case r == mir.X : return uint16(self.x)
        case r == mir.Y : return uint16(self.y)
        case r == mir.C : return uint16(b2u(self.c))
        case r == mir.V : return uint16(b2u(self.v))
        case r == mir.N : return uint16(b2u(self.n))
        case r == mir.Z : return uint16(b2u(self.z))
    }

    switch {
        case mir.Imag8.Contains(r)    : return uint16(self.rc[r - mir.RC(0)])
        case mir.Imag16.Contains(r)   : lo := self.getPhys(mir.SubRegOf(r, mir.SubLo), mir.SubNone)
                                        hi := self.getPhys(mir.SubRegOf(r, mir.SubHi), mir.SubNone)
                                        return lo | hi << 8
        case mir.GPRLsb.Contains(r)   : return self.getPhys(mir.MatchingSuperReg(r, mir.SubLsb, mir.GPR), mir.SubNone) & 1
        case mir.Imag8Lsb.Contains(r) : return self.getPhys(mir.MatchingSuperReg(r, mir.SubLsb, mir.Imag8), mir.SubNone) & 1
        default                       : panic("emu: read from unknown register: " + r.String())
    }
}

func (self *Machine) setPhys(r mir.Reg, sub mir.SubIdx, v uint16) {
    if sub != mir.SubNone {
        if r = mir.SubRegOf(r, sub); r == mir.NoReg {
            panic("emu: bad sub-register write")
        }
    }

    switch {
        case r == mir.A : self.a = uint8(v); return
        case r == mir.X : self.x = uint8(v); return
        case r == mir.Y : self.y = uint8(v); return
        case r == mir.C : self.c = v != 0; return
        case r == mir.V : self.v = v != 0; return
        case r == mir.N : self.n = v != 0; return
        case r == mir.Z : self.z = v != 0; return
    }

    switch {
        case mir.Imag8.Contains(r)  : self.rc[r - mir.RC(0)] = uint8(v)
        case mir.Imag16.Contains(r) : self.setPhys(mir.SubRegOf(r, mir.SubLo), mir.SubNone, v & 0xff)
                                      self.setPhys(mir.SubRegOf(r, mir.SubHi), mir.SubNone, v >> 8)

        /* LSB writes store the whole byte */
        case mir.GPRLsb.Contains(r)   : self.setPhys(mir.MatchingSuperReg(r, mir.SubLsb, mir.GPR), mir.SubNone, v)
        case mir.Imag8Lsb.Contains(r) : self.setPhys(mir.MatchingSuperReg(r, mir.SubLsb, mir.Imag8), mir.SubNone, v)
        default                       : panic("emu: write to unknown register: " + r.String())
    }
}

/* operand access: virtual registers with sub-register selectors follow the
 * same aliasing rules over their storage cell */

func (self *Machine) read(mo mir.Operand) uint16 {
    if mo.Kind != mir.OpdReg {
        panic("emu: read from a non-register operand: " + mo.String())
    }
    if !mo.Reg.IsVirtual() {
        return self.getPhys(mo.Reg, mo.Sub)
    }

    v := self.cells[mo.Reg.Index()]
    switch mo.Sub {
        case mir.SubNone : return v
        case mir.SubLo   : return v & 0xff
        case mir.SubHi   : return v >> 8
        case mir.SubLsb  : return v & 1
        default          : panic("unreachable")
    }
}

func (self *Machine) write(mo mir.Operand, v uint16) {
    if mo.Kind != mir.OpdReg {
        panic("emu: write to a non-register operand: " + mo.String())
    }
    if !mo.Reg.IsVirtual() {
        self.setPhys(mo.Reg, mo.Sub, v)
        return
    }

    old := self.cells[mo.Reg.Index()]
    switch mo.Sub {
        case mir.SubNone : self.cells[mo.Reg.Index()] = v
        case mir.SubLo   : self.cells[mo.Reg.Index()] = old & 0xff00 | v & 0xff
        case mir.SubHi   : self.cells[mo.Reg.Index()] = old & 0x00ff | v << 8

        /* full-width rule applies to virtual bytes too */
        case mir.SubLsb  : self.cells[mo.Reg.Index()] = v & 0xff
        default          : panic("unreachable")
    }
}

func (self *Machine) exec(p *mir.Instr) {
    switch p.Op {
        default: {
            panic(fmt.Sprintf("emu: unsupported opcode: %s", p))
        }

        case mir.OpKILL: {
            /* liveness fence only */
        }

        case mir.OpCOPY: {
            self.write(p.Args[0], self.read(p.Args[1]))
        }

        case mir.OpTAx, mir.OpTxA: {
            v := self.read(p.Args[1])
            self.write(p.Args[0], v)
            self.setNZ(uint8(v))
        }

        case mir.OpLDImag8: {
            v := self.read(p.Args[1])
            self.write(p.Args[0], v)
            self.setNZ(uint8(v))
        }

        case mir.OpSTImag8: {
            self.write(p.Args[0], self.read(p.Args[1]))
        }

        case mir.OpLDImm: {
            v := uint16(uint8(p.Args[1].Imm))
            self.write(p.Args[0], v)
            self.setNZ(uint8(v))
        }

        case mir.OpLDCImm: {
            self.c = p.Args[1].Imm != 0
        }

        case mir.OpCLV: {
            self.v = false
        }

        case mir.OpCMPImm: {
            self.compare(uint8(self.read(p.Args[1])), uint8(p.Args[2].Imm))
        }

        case mir.OpCMPImag8, mir.OpCMPImmTerm, mir.OpCMPImag8Term: {
            if p.Op == mir.OpCMPImmTerm {
                self.compare(uint8(self.read(p.Args[1])), uint8(p.Args[2].Imm))
            } else {
                self.compare(uint8(self.read(p.Args[1])), uint8(self.read(p.Args[2])))
            }
        }

        case mir.OpADCImag8: {
            r := uint16(uint8(self.read(p.Args[3]))) + uint16(uint8(self.read(p.Args[4]))) + uint16(b2u(self.read(p.Args[5]) != 0))
            a := uint8(self.read(p.Args[3]))
            m := uint8(self.read(p.Args[4]))
            v := uint8(r)
            self.write(p.Args[0], uint16(v))
            self.c = r > 0xff
            self.v = (a ^ v) & (m ^ v) & 0x80 != 0
            self.setNZ(v)
        }

        case mir.OpSBCImag8: {
            a := uint8(self.read(p.Args[3]))
            m := uint8(self.read(p.Args[4]))
            r := uint16(a) + uint16(^m) + uint16(b2u(self.read(p.Args[5]) != 0))
            v := uint8(r)
            self.write(p.Args[0], uint16(v))
            self.c = r > 0xff
            self.v = (a ^ v) & (^m ^ v) & 0x80 != 0
            self.setNZ(v)
        }

        case mir.OpANDImag8, mir.OpEORImag8, mir.OpORAImag8: {
            a := uint8(self.read(p.Args[1]))
            m := uint8(self.read(p.Args[2]))
            var v uint8
            switch p.Op {
                case mir.OpANDImag8 : v = a & m
                case mir.OpEORImag8 : v = a ^ m
                case mir.OpORAImag8 : v = a | m
            }
            self.write(p.Args[0], uint16(v))
            self.setNZ(v)
        }

        case mir.OpPH: {
            self.stk = append(self.stk, uint8(self.read(p.Args[0])))
        }

        case mir.OpPL: {
            if len(self.stk) == 0 {
                panic("emu: pull from an empty hardware stack")
            }
            v := self.stk[len(self.stk) - 1]
            self.stk = self.stk[:len(self.stk) - 1]
            self.write(p.Args[0], uint16(v))
            self.setNZ(v)
        }

        case mir.OpSelectImm: {
            v := p.Args[3].Imm
            if self.read(p.Args[1]) != 0 {
                v = p.Args[2].Imm
            }
            self.write(p.Args[0], uint16(uint8(v)))
        }

        case mir.OpBITAbs: {
            /* the referenced location is a constant with bit 6 set */
            self.v = true
        }

        case mir.OpLDAbsOffset: {
            v := self.Slot(p.Args[1].Index, p.Args[2].Imm)
            self.write(p.Args[0], uint16(v))
            self.setNZ(v)
        }

        case mir.OpSTAbsOffset: {
            self.SetSlot(p.Args[1].Index, p.Args[2].Imm, uint8(self.read(p.Args[0])))
        }

        case mir.OpLDStk: {
            fi := p.Args[2].Index
            self.write(p.Args[1], uint16(self.base[fi]))
            if widthOfReg(self.fun, p.Args[0].Reg) == mir.WidthWord {
                v := uint16(self.Slot(fi, p.Args[3].Imm)) | uint16(self.Slot(fi, p.Args[3].Imm + 1)) << 8
                self.write(p.Args[0], v)
            } else {
                self.write(p.Args[0], uint16(self.Slot(fi, p.Args[3].Imm)))
            }
        }

        case mir.OpSTStk: {
            fi := p.Args[2].Index
            self.write(p.Args[0], uint16(self.base[fi]))
            v := self.read(p.Args[1])
            self.SetSlot(fi, p.Args[3].Imm, uint8(v))
            if widthOfReg(self.fun, p.Args[1].Reg) == mir.WidthWord {
                self.SetSlot(fi, p.Args[3].Imm + 1, uint8(v >> 8))
            }
        }
    }
}

/* CMP semantics: carry is set on no-borrow, N and Z from the difference */
func (self *Machine) compare(a uint8, m uint8) {
    self.c = a >= m
    self.setNZ(a - m)
}

func widthOfReg(fn *mir.Func, r mir.Reg) mir.Width {
    if r.IsVirtual() {
        return fn.ClassOf(r).WidthOf()
    } else {
        return mir.RegWidth(r)
    }
}
