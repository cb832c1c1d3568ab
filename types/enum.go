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

package types

import "strings"

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// Lifetime controls how long a resolved repository and its store live.
type Lifetime int

const (
	// Transient creates a new store and repository on every resolve.
	Transient Lifetime = iota
	// Scoped shares one store and repository per logical session.
	Scoped
	// Singleton shares one store and repository for the whole process.
	Singleton
)

var _ BaseEnum = Lifetime(0)

var lifetimeNames = map[Lifetime][2]string{
	Transient: {"transient", "new instance per call"},
	Scoped:    {"scoped", "one instance per logical session"},
	Singleton: {"singleton", "one shared instance per process"},
}

// ParseLifetime parses a lifetime name. Unknown names yield an invalid value.
func ParseLifetime(s string) Lifetime {
	s = strings.ToLower(strings.TrimSpace(s))
	for l, names := range lifetimeNames {
		if names[0] == s {
			return l
		}
	}
	return Lifetime(IllegalValue)
}

func (l Lifetime) IsValid() bool {
	_, ok := lifetimeNames[l]
	return ok
}

func (l Lifetime) Number() int { return int(l) }

func (l Lifetime) String() string { return l.Name() }

func (l Lifetime) Name() string {
	if names, ok := lifetimeNames[l]; ok {
		return names[0]
	}
	return IllegalName
}

func (l Lifetime) Desc() string {
	if names, ok := lifetimeNames[l]; ok {
		return names[1]
	}
	return IllegalDesc
}
