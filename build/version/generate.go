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

//go:build ignore

// Generate writes version.txt, commit.txt, and branch.txt from git.
package main

import (
	"bytes"
	"log"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"
)

func main() {
	log.SetFlags(0)

	var g errgroup.Group

	for file, args := range map[string][]string{
		"version.txt": {"describe", "--tags", "--dirty"},
		"commit.txt":  {"rev-parse", "HEAD"},
		"branch.txt":  {"branch", "--show-current"},
	} {
		g.Go(func() error {
			cmd := exec.Command("git", args...)
			cmd.Stderr = os.Stderr

			b, err := cmd.Output()
			if err != nil {
				log.Printf("git %s: %s", strings.Join(args, " "), err)
				return err
			}

			log.Printf("%s: %s", file, bytes.TrimSpace(b))

			return os.WriteFile(file, b, 0o666)
		})
	}

	if err := g.Wait(); err != nil {
		os.Exit(1)
	}
}
