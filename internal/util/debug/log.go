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

package debug

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/FerretDB/rwrouter/internal/util/logging"
)

// logEntry is a JSON representation of recent log entry.
type logEntry struct {
	Time    string `json:"t"`
	Level   string `json:"l"`
	Logger  string `json:"n,omitempty"`
	Message string `json:"m"`
}

// logHandler returns a handler that shows recent log entries
// at or above the level given by the "level" query parameter (info by default).
func logHandler(l *zap.Logger) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		level := zap.InfoLevel

		if s := req.URL.Query().Get("level"); s != "" {
			var err error
			if level, err = zapcore.ParseLevel(s); err != nil {
				http.Error(rw, err.Error(), http.StatusBadRequest)
				return
			}
		}

		entries := logging.RecentEntries.GetArray(level)

		res := make([]logEntry, len(entries))
		for i, e := range entries {
			res[i] = logEntry{
				Time:    e.Time.Format("2006-01-02T15:04:05.000Z0700"),
				Level:   e.Level.CapitalString(),
				Logger:  e.LoggerName,
				Message: e.Message,
			}
		}

		rw.Header().Set("Content-Type", "application/json")

		e := json.NewEncoder(rw)
		e.SetIndent("", "  ")

		if err := e.Encode(res); err != nil {
			l.Warn("Failed to write log entries", zap.Error(err))
		}
	}
}
