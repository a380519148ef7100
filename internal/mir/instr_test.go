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

package mir

import (
    `testing`

    `github.com/stretchr/testify/require`
)

func TestOperand_NameTables(t *testing.T) {
    flags := OperandFlagNames()
    require.Len(t, flags, 2)
    require.Equal(t, MO_LO, flags[0].F)
    require.Equal(t, "lo", flags[0].Name)
    require.Equal(t, MO_HI, flags[1].F)
    require.Equal(t, "hi", flags[1].Name)

    tis := TargetIndexNames()
    require.Len(t, tis, 1)
    require.Equal(t, TI_STATIC_STACK, tis[0].I)
    require.Equal(t, "mos-static-stack", tis[0].Name)
}

func TestOperand_DecomposeFlags(t *testing.T) {
    /* no bitmask flags on this target: everything is direct */
    d, m := DecomposeOperandFlags(MO_LO | MO_HI)
    require.Equal(t, MO_LO | MO_HI, d)
    require.Equal(t, OpdFlags(0), m)
}

func TestOperand_String(t *testing.T) {
    require.Equal(t, "def a", DefReg(A).String())
    require.Equal(t, "rc3:lsb", UseReg(RC(3)).WithSub(SubLsb).String())
    require.Equal(t, "$-1", Imm(-1).String())
    require.Equal(t, "%stack.2", Frame(2).String())
    require.Equal(t, "@__set_v", Symbol("__set_v").String())

    k := UseReg(A)
    k.Kill = true
    require.Equal(t, "a <kill>", k.String())
}

func TestOp_Predicates(t *testing.T) {
    require.True(t, OpCMPImm.IsCompare())
    require.True(t, OpCMPImmTerm.IsTerminator())
    require.True(t, OpCMPImmTerm.IsPseudo())
    require.False(t, OpCMPImm.IsTerminator())
    require.True(t, OpBR.IsConditional())
    require.True(t, OpJMP.IsUnconditional())
    require.True(t, OpGBranch.IsAbstract())
    require.False(t, OpBRA.IsAbstract())
    require.True(t, OpADCImag8.IsCommutable())
    require.False(t, OpSBCImag8.IsCommutable())

    i, j := OpANDImag8.CommutableOperands()
    require.Equal(t, 1, i)
    require.Equal(t, 2, j)
    require.Panics(t, func() { OpSBCImag8.CommutableOperands() })
}

func TestOp_OperandClasses(t *testing.T) {
    c, ok := OpdClass(OpANDImag8, 2)
    require.True(t, ok)
    require.Equal(t, Imag8, c)

    c, ok = OpdClass(OpADCImag8, 3)
    require.True(t, ok)
    require.Equal(t, Ac, c)

    /* immediates carry no constraint, and neither do unknown slots */
    _, ok = OpdClass(OpLDImm, 1)
    require.False(t, ok)
    _, ok = OpdClass(OpANDImag8, 9)
    require.False(t, ok)
    _, ok = OpdClass(OpCOPY, 0)
    require.False(t, ok)
}
