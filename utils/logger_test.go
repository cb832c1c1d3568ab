/*
 * Copyright 2025 tomoncle.
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

package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerIsNamedSingleton(t *testing.T) {
	first := NewLogger("REPO-TEST")
	assert.Same(t, first, NewLogger("REPO-TEST"))
	assert.NotSame(t, first, NewLogger("STORE-TEST"))

	assert.True(t, SetLoggerLevel("REPO-TEST", "debug"))
	assert.Equal(t, logrus.DebugLevel, first.GetLevel())
	assert.False(t, SetLoggerLevel("MISSING", "debug"))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logrus.WarnLevel, ParseLogLevel(" warn "))
	assert.Equal(t, logrus.ErrorLevel, ParseLogLevel("error"))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel("verbose"))
}

func TestConsoleFormatter(t *testing.T) {
	f := &ConsoleFormatter{LoggerName: "DATAGRID-LONG-NAME", NameWidth: 8, NoColor: true}
	entry := &logrus.Entry{
		Time:    time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "Update skipped",
		Data:    logrus.Fields{"table": "employees", "attempt": 2},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	line := string(out)
	assert.True(t, strings.HasPrefix(line, "2025-03-01 12:30:00.000 "))
	assert.Contains(t, line, "WARNING")
	assert.Contains(t, line, "[DATAGRID]")
	assert.True(t, strings.HasSuffix(line, " : Update skipped attempt=2 table=employees\n"))
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("DATAGRID_TEST_STRING", "value")
	t.Setenv("DATAGRID_TEST_BOOL", "true")
	t.Setenv("DATAGRID_TEST_BAD_BOOL", "maybe")
	t.Setenv("DATAGRID_TEST_INT", "42")

	assert.Equal(t, "value", EnvDefaultString("DATAGRID_TEST_STRING", "def"))
	assert.Equal(t, "def", EnvDefaultString("DATAGRID_TEST_UNSET", "def"))
	assert.True(t, EnvDefaultBool("DATAGRID_TEST_BOOL", false))
	assert.True(t, EnvDefaultBool("DATAGRID_TEST_BAD_BOOL", true))
	assert.Equal(t, 42, EnvDefaultInt("DATAGRID_TEST_INT", 1))
	assert.Equal(t, 1, EnvDefaultInt("DATAGRID_TEST_STRING", 1))
}
