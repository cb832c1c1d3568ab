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

package demo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTracingDisabledByDefault(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "")

	shutdown, err := InitTracing(context.Background(), "datagrid-test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracingUnsupportedProtocol(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "false")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "carrier-pigeon")

	shutdown, err := InitTracing(context.Background(), "datagrid-test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSamplerFromEnv(t *testing.T) {
	t.Setenv("OTEL_TRACES_SAMPLER", "always_off")
	assert.Equal(t, sdktrace.NeverSample().Description(), samplerFromEnv().Description())

	t.Setenv("OTEL_TRACES_SAMPLER", "traceidratio")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")
	assert.Equal(t, sdktrace.TraceIDRatioBased(0.25).Description(), samplerFromEnv().Description())

	t.Setenv("OTEL_TRACES_SAMPLER", "")
	assert.Contains(t, samplerFromEnv().Description(), "ParentBased")
}
