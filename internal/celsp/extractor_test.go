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

package celsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCELRegionsFieldContext(t *testing.T) {
	t.Parallel()

	source := `message Foo {
  string name = 1 [(buf.validate.field).cel = {
    expression: "this.size() > 0"
  }];
}
`
	regions := extractCELRegions(source)
	require.Len(t, regions, 1)

	region := regions[0]
	assert.Equal(t, `this.size() > 0`, region.source)
	assert.Equal(t, region.source, source[region.hostOffset:region.hostOffset+len(region.source)])
	assert.Equal(t, contextField, region.context.kind)
	assert.Equal(t, "Foo", region.context.messageType)
	assert.Equal(t, "name", region.context.fieldName)
	assert.Equal(t, "string", region.context.fieldType)
}

func TestExtractCELRegionsMessageContext(t *testing.T) {
	t.Parallel()

	source := `message Bar {
  option (buf.validate.message).cel = {
    expression: "this.a < this.b"
  };
}
`
	regions := extractCELRegions(source)
	require.Len(t, regions, 1)

	region := regions[0]
	assert.Equal(t, `this.a < this.b`, region.source)
	assert.Equal(t, contextMessage, region.context.kind)
	assert.Equal(t, "Bar", region.context.messageType)
	assert.Equal(t, "", region.context.fieldName)
}

func TestExtractCELRegionsPredefinedContext(t *testing.T) {
	t.Parallel()

	source := `extend buf.validate.PredefinedRules {
  bool is_positive = 1001 [(buf.validate.predefined).cel = {
    expression: "this > 0"
  }];
}
`
	regions := extractCELRegions(source)
	require.Len(t, regions, 1)
	assert.Equal(t, contextPredefined, regions[0].context.kind)
	assert.Equal(t, "", regions[0].context.messageType)
}

// TestExtractCELRegionsCommentedOutAnnotation covers scenario 6: an
// annotation entirely inside a comment yields zero regions.
func TestExtractCELRegionsCommentedOutAnnotation(t *testing.T) {
	t.Parallel()

	lineComment := `message Foo {
  // string name = 1 [(buf.validate.field).cel = { expression: "this.size() > 0" }];
}
`
	assert.Empty(t, extractCELRegions(lineComment))

	blockComment := `message Foo {
  /* string name = 1 [(buf.validate.field).cel = { expression: "this.size() > 0" }]; */
}
`
	assert.Empty(t, extractCELRegions(blockComment))
}

func TestExtractCELRegionsOrdering(t *testing.T) {
	t.Parallel()

	source := `message Foo {
  option (buf.validate.message).cel = {
    expression: "this.a > 0"
  };
  string name = 1 [(buf.validate.field).cel = {
    expression: "this.size() > 0"
  }];
}
`
	regions := extractCELRegions(source)
	require.Len(t, regions, 2)
	assert.Less(t, regions[0].hostOffset, regions[1].hostOffset)
	assert.Equal(t, `this.a > 0`, regions[0].source)
	assert.Equal(t, `this.size() > 0`, regions[1].source)
}

func TestExtractCELRegionsUnclosedStringYieldsNoRegion(t *testing.T) {
	t.Parallel()

	source := `message Foo {
  option (buf.validate.message).cel = {
    expression: "this.a > 0
  };
}
`
	assert.Empty(t, extractCELRegions(source))
}

func TestFindCommentRangesIgnoresStringContents(t *testing.T) {
	t.Parallel()

	source := `"// not a comment" // a real comment`
	ranges := findCommentRanges(source)
	require.Len(t, ranges, 1)
	assert.Equal(t, len(`"// not a comment" `), ranges[0][0])
}

func TestProtovalidateContextThisType(t *testing.T) {
	t.Parallel()

	field := protovalidateContext{kind: contextField, fieldType: "int32"}
	assert.Equal(t, kindInt, field.thisType().kind)

	emptyField := protovalidateContext{kind: contextField}
	assert.Equal(t, kindDyn, emptyField.thisType().kind)

	message := protovalidateContext{kind: contextMessage, messageType: "pkg.Foo"}
	assert.Equal(t, kindMessage, message.thisType().kind)
	assert.Equal(t, "pkg.Foo", message.thisType().messageName)

	predefined := protovalidateContext{kind: contextPredefined}
	assert.Equal(t, kindDyn, predefined.thisType().kind)
}
