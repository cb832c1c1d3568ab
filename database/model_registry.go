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

package database

import (
	"reflect"
	"sort"
	"sync"
)

var defaultRegistry = NewModelRegistry()

// SQLModel is a Bun model known to the table bootstrap. Instance returns a
// struct pointer; Priority orders creation (lower first) so referenced tables
// exist before the tables pointing at them.
type SQLModel interface {
	Instance() interface{}
	Priority() int
}

// ModelRegistry stores SQL models, one per Go type, in a deterministic order.
type ModelRegistry interface {
	Register(model SQLModel) bool
	Models() []SQLModel
	Instances() []interface{}
}

type modelRegistry struct {
	mutex  sync.RWMutex
	models []SQLModel
	seen   map[reflect.Type]struct{}
}

// NewModelRegistry returns an empty model registry.
func NewModelRegistry() ModelRegistry {
	return &modelRegistry{seen: make(map[reflect.Type]struct{})}
}

// Register adds the model unless a model of the same type is already
// present, and reports whether it was added.
func (r *modelRegistry) Register(model SQLModel) bool {
	typ := reflect.TypeOf(model.Instance())
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, ok := r.seen[typ]; ok {
		return false
	}
	r.seen[typ] = struct{}{}
	r.models = append(r.models, model)
	return true
}

func (r *modelRegistry) Models() []SQLModel {
	r.mutex.RLock()
	result := make([]SQLModel, len(r.models))
	copy(result, r.models)
	r.mutex.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Priority() < result[j].Priority()
	})
	return result
}

func (r *modelRegistry) Instances() []interface{} {
	models := r.Models()
	instances := make([]interface{}, len(models))
	for i, model := range models {
		instances[i] = model.Instance()
	}
	return instances
}

type modelAdapter struct {
	instance interface{}
	priority int
}

// NewModelAdapter wraps a struct pointer and priority into an SQLModel.
func NewModelAdapter(instance interface{}, priority int) SQLModel {
	return &modelAdapter{instance: instance, priority: priority}
}

func (a *modelAdapter) Instance() interface{} { return a.instance }

func (a *modelAdapter) Priority() int { return a.priority }

// DefaultModels returns the process-wide model registry.
func DefaultModels() ModelRegistry {
	return defaultRegistry
}

// RegisterModel adds a model to the process-wide registry.
func RegisterModel(model SQLModel) {
	defaultRegistry.Register(model)
}
