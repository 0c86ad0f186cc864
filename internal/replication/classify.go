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

package replication

import (
	"strings"
	"unicode"
)

// readOnlyKeywords are the first keywords of statements that can't modify data.
var readOnlyKeywords = map[string]struct{}{
	"SELECT":   {},
	"WITH":     {},
	"SHOW":     {},
	"EXPLAIN":  {},
	"DESCRIBE": {},
	"DESC":     {},
	"VALUES":   {},
}

// modifyingKeywords make WITH statements (and EXPLAIN ANALYZE of them) modifying.
var modifyingKeywords = []string{"INSERT", "UPDATE", "DELETE", "REPLACE", "MERGE"}

// lockingClauses make SELECT statements take row locks that replicas can't provide.
var lockingClauses = [][]string{
	{"FOR", "UPDATE"},
	{"FOR", "NO", "KEY", "UPDATE"},
	{"FOR", "SHARE"},
	{"FOR", "KEY", "SHARE"},
	{"LOCK", "IN", "SHARE", "MODE"},
}

// IsReadOnly returns true if the statement can be executed on a replica.
//
// The check is conservative: unknown or ambiguous statements are not read-only.
func IsReadOnly(sql string) bool {
	words := keywords(sql)
	if len(words) == 0 {
		return false
	}

	if _, ok := readOnlyKeywords[words[0]]; !ok {
		return false
	}

	for _, w := range words {
		for _, m := range modifyingKeywords {
			if w == m {
				return false
			}
		}

		// SELECT ... INTO creates a table in PostgreSQL and writes a file in MySQL
		if w == "INTO" {
			return false
		}
	}

	for i := range words {
		for _, clause := range lockingClauses {
			if hasPrefix(words[i:], clause) {
				return false
			}
		}
	}

	return true
}

// hasPrefix returns true if words start with prefix.
func hasPrefix(words, prefix []string) bool {
	if len(words) < len(prefix) {
		return false
	}

	for i, p := range prefix {
		if words[i] != p {
			return false
		}
	}

	return true
}

// keywords returns upper-cased bare words of the statement,
// skipping comments, string literals, and quoted identifiers.
func keywords(sql string) []string {
	var res []string

	rs := []rune(sql)

	for i := 0; i < len(rs); {
		c := rs[i]

		switch {
		case c == '-' && i+1 < len(rs) && rs[i+1] == '-':
			for i < len(rs) && rs[i] != '\n' {
				i++
			}

		case c == '/' && i+1 < len(rs) && rs[i+1] == '*':
			i += 2
			for i < len(rs) && !(rs[i] == '*' && i+1 < len(rs) && rs[i+1] == '/') {
				i++
			}
			i += 2

		case c == '\'' || c == '"' || c == '`':
			i++
			for i < len(rs) {
				if rs[i] == '\\' && c != '`' {
					i += 2
					continue
				}

				if rs[i] == c {
					// doubled quote is an escaped quote
					if i+1 < len(rs) && rs[i+1] == c {
						i += 2
						continue
					}

					break
				}

				i++
			}
			i++

		case unicode.IsLetter(c) || c == '_':
			start := i
			for i < len(rs) && (unicode.IsLetter(rs[i]) || unicode.IsDigit(rs[i]) || rs[i] == '_' || rs[i] == '$') {
				i++
			}
			res = append(res, strings.ToUpper(string(rs[start:i])))

		default:
			i++
		}
	}

	return res
}
