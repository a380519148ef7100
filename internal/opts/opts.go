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

package opts

import (
    `os`
    `strconv`
)

var (
    DebugExpand = parseBool("MOS6502_DEBUG_EXPAND")
    DebugRelax  = parseBool("MOS6502_DEBUG_RELAX")
)

func parseBool(key string) bool {
    if env := os.Getenv(key); env == "" {
        return false
    } else if val, err := strconv.ParseBool(env); err != nil {
        panic("mos6502: invalid value for " + key)
    } else {
        return val
    }
}
