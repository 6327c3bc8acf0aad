// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// This file wraps a binary FileDescriptorSet ingestion library to answer
// the field and message-name queries the core needs: qualifying a short
// message name and listing a message's field names/types for completion.

package celsp

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
)

// protoRegistry answers field and message queries over a set of ingested
// binary file descriptor sets, built once at startup and read-only
// thereafter.
type protoRegistry struct {
	mu        sync.RWMutex
	fileDescs []*desc.FileDescriptor
	messages  map[string]*desc.MessageDescriptor // fully-qualified name -> descriptor
	shortName map[string][]string                // unqualified name -> fully-qualified candidates

	// strongEnums mirrors env.strong_enums (default true): when false,
	// enum-typed fields display as plain int in completion details. It
	// affects display only; environment construction does not read it, so
	// type checking of enum fields is the same either way.
	strongEnums bool
}

func newProtoRegistry() *protoRegistry {
	return &protoRegistry{
		messages:    make(map[string]*desc.MessageDescriptor),
		shortName:   make(map[string][]string),
		strongEnums: true,
	}
}

// addFileDescriptorSet ingests a binary-encoded descriptorpb.FileDescriptorSet.
func (r *protoRegistry) addFileDescriptorSet(data []byte) error {
	var set descriptorpb.FileDescriptorSet
	if err := proto.Unmarshal(data, &set); err != nil {
		return fmt.Errorf("parsing file descriptor set: %w", err)
	}

	fileDescs, err := desc.CreateFileDescriptorsFromSet(&set)
	if err != nil {
		return fmt.Errorf("linking file descriptor set: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, fd := range fileDescs {
		r.fileDescs = append(r.fileDescs, fd)
		r.indexMessages(fd.GetMessageTypes())
	}
	return nil
}

func (r *protoRegistry) indexMessages(messages []*desc.MessageDescriptor) {
	for _, m := range messages {
		full := m.GetFullyQualifiedName()
		r.messages[full] = m
		short := m.GetName()
		r.shortName[short] = append(r.shortName[short], full)
		r.indexMessages(m.GetNestedMessageTypes())
	}
}

// qualifyMessageName upgrades a short or already-qualified message name
// to its fully-qualified name when a unique match exists in the registry;
// otherwise it reports no match and the caller leaves the name unchanged.
func (r *protoRegistry) qualifyMessageName(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.messages[name]; ok {
		return name, true
	}
	if candidates, ok := r.shortName[name]; ok && len(candidates) == 1 {
		return candidates[0], true
	}
	return "", false
}

// messageFieldNames returns the declared field names of a fully-qualified
// message type, sorted in declaration order.
func (r *protoRegistry) messageFieldNames(fullName string) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.messages[fullName]
	if !ok {
		return nil, false
	}
	names := make([]string, 0, len(m.GetFields()))
	for _, f := range m.GetFields() {
		names = append(names, f.GetName())
	}
	return names, true
}

// fieldType returns the proto-syntax type string for a field of a
// fully-qualified message type (e.g. "string", "repeated MyMessage"),
// suitable for display and for protoFieldTypeToCEL.
func (r *protoRegistry) fieldType(fullName, fieldName string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.messages[fullName]
	if !ok {
		return "", false
	}
	for _, f := range m.GetFields() {
		if f.GetName() != fieldName {
			continue
		}
		return fieldDisplayType(f, r.strongEnums), true
	}
	return "", false
}

func fieldDisplayType(f *desc.FieldDescriptor, strongEnums bool) string {
	var base string
	switch f.GetType() {
	case descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, descriptorpb.FieldDescriptorProto_TYPE_GROUP:
		base = f.GetMessageType().GetFullyQualifiedName()
	case descriptorpb.FieldDescriptorProto_TYPE_ENUM:
		if strongEnums {
			base = f.GetEnumType().GetFullyQualifiedName()
		} else {
			base = "int"
		}
	default:
		base = strings.TrimPrefix(strings.ToLower(f.GetType().String()), "type_")
	}
	if f.IsMap() {
		return "map<" + fieldDisplayType(f.GetMapKeyType(), strongEnums) + ", " + fieldDisplayType(f.GetMapValueType(), strongEnums) + ">"
	}
	if f.IsRepeated() {
		return "repeated " + base
	}
	return base
}

// files returns the ingested files as protoreflect descriptors, the form
// cel.TypeDescs accepts.
func (r *protoRegistry) files() []protoreflect.FileDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]protoreflect.FileDescriptor, 0, len(r.fileDescs))
	for _, fd := range r.fileDescs {
		out = append(out, fd.UnwrapFile())
	}
	return out
}

// parseProtoSourceForTesting compiles a .proto source string into file
// descriptors without a full build graph; used only by tests that need a
// registry without shipping binary descriptor-set fixtures.
func parseProtoSourceForTesting(filename, source string) ([]*desc.FileDescriptor, error) {
	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{filename: source}),
	}
	return parser.ParseFiles(filename)
}
