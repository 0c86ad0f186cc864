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

package sqlite

import (
	"net/url"
	"path/filepath"
)

// databaseURI returns SQLite URI for the given database file.
//
// Keep it in sync with the package documentation.
func databaseURI(path string, readOnly bool) string {
	values := url.Values{}
	values.Add("_pragma", "busy_timeout(5000)")

	if readOnly {
		values.Set("mode", "ro")
		values.Add("_pragma", "query_only(1)")
	} else {
		values.Set("mode", "rwc")
		values.Add("_pragma", "journal_mode(wal)")
	}

	u := &url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(path),
		OmitHost: true,
		RawQuery: values.Encode(),
	}

	return u.String()
}
