package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueIsNullOrEmpty(t *testing.T) {
	assert.True(t, Value{Kind: KindNull}.IsNullOrEmpty())
	assert.True(t, StringValue("").IsNullOrEmpty())
	assert.False(t, StringValue("x").IsNullOrEmpty())
	assert.False(t, BytesValue([]byte{}).IsNullOrEmpty())
}

func TestValueAsString(t *testing.T) {
	assert.Equal(t, "hello", StringValue("hello").AsString())
	assert.Equal(t, "s.whatsapp.net", JIDValue(NewJID("", ServerDefault)).AsString())
	assert.Equal(t, "123@s.whatsapp.net", JIDValue(NewJID("123", ServerDefault)).AsString())
	assert.Equal(t, "", BytesValue([]byte("x")).AsString())
}

func TestJIDString(t *testing.T) {
	j := NewJID("15551234", ServerDefault)
	assert.Equal(t, "15551234@s.whatsapp.net", j.String())

	group := NewJID("", ServerGroup)
	assert.Equal(t, "g.us", group.String())
}

func TestNodeGetChildByTag(t *testing.T) {
	child1 := NewNode("ref")
	child2 := NewNode("device")
	parent := NewNode("pair-device")
	listVal := ListValue([]*Node{child1, child2})
	parent.Content = &listVal

	assert.Same(t, child2, parent.GetChildByTag("device"))
	assert.Nil(t, parent.GetChildByTag("missing"))
}

func TestNodeGetChildrenOnLeaf(t *testing.T) {
	n := NewNode("ping")
	assert.Nil(t, n.GetChildren())

	textVal := StringValue("hi")
	n.Content = &textVal
	assert.Nil(t, n.GetChildren())
}

func TestNodeAttrString(t *testing.T) {
	n := NewNode("iq")
	n.Attrs["id"] = StringValue("abc.123")
	assert.Equal(t, "abc.123", n.AttrString("id"))
	assert.Equal(t, "", n.AttrString("missing"))

	var nilNode *Node
	assert.Equal(t, "", nilNode.AttrString("id"))
}
