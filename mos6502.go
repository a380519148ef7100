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

// Package mos6502 is the target-specific back end layer for the MOS 6502
// processor family. It synthesizes register transfers over the asymmetric
// register file, lowers abstract stack slot accesses, expands post-allocation
// pseudo instructions, and analyzes and edits branch terminators.
package mos6502

import (
    `github.com/retrocc/mos6502/internal/lower`
)

// Variant selects the hardware variant; it is explicit configuration and is
// never inferred from the host.
type Variant = lower.Variant

const (
    NMOS6502  = lower.NMOS6502
    CMOS65C02 = lower.CMOS65C02
)

// CommuteAnyOperandIndex asks InstrInfo.FindCommutedOpIndices to pick the
// operand slot from the per-opcode table instead of pinning it.
const CommuteAnyOperandIndex = lower.CommuteAnyOperandIndex

// InstrInfo is the instruction-lowering interface for one variant.
type InstrInfo = lower.InstrInfo

// Cond is a branch condition as produced by branch analysis.
type Cond = lower.Cond

// Branches is the analyzed terminator shape of a basic block.
type Branches = lower.Branches

// RelaxBranches is the pass that rewrites out-of-range short branches.
type RelaxBranches = lower.RelaxBranches

// New creates the lowering interface for the given hardware variant.
func New(v Variant) InstrInfo {
    return lower.New(v)
}
