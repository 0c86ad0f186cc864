// Copyright 2021 FerretDB Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build unix

package startup

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// stateFileErr adds process and file ownership details to the state file access error.
func stateFileErr(f string, err error) error {
	var extra []string

	if u, _ := user.Current(); u != nil {
		extra = append(extra, fmt.Sprintf("running as %s/%s:%s", u.Username, u.Uid, u.Gid))
	}

	// the file itself may not exist yet
	for _, p := range []string{f, filepath.Dir(f)} {
		fi, _ := os.Stat(p)
		if fi == nil {
			continue
		}

		extra = append(extra, fmt.Sprintf("%s permissions are %s", p, fi.Mode().String()))

		if s, _ := fi.Sys().(*unix.Stat_t); s != nil {
			var username string
			if u, _ := user.LookupId(strconv.Itoa(int(s.Uid))); u != nil {
				username = u.Username
			}

			extra = append(extra, fmt.Sprintf("owned by %s/%d:%d", username, s.Uid, s.Gid))
		}

		break
	}

	if extra == nil {
		return fmt.Errorf("failed to use state file %q: %w", f, err)
	}

	return fmt.Errorf("failed to use state file %q: %w (%s)", f, err, strings.Join(extra, ", "))
}
