package opc

import (
	"github.com/beevik/etree"
)

// ContentTypesName is the zip entry name of the content-types manifest.
const ContentTypesName = "[Content_Types].xml"

// contentTypesNS is the OPC content-types schema namespace.
const contentTypesNS = "http://schemas.openxmlformats.org/package/2006/content-types"

// xmlDeclaration is the declaration emitted on every serialized document.
const xmlDeclaration = `version="1.0" encoding="UTF-8" standalone="yes"`

type typeEntry struct {
	key   string
	value string
}

// ContentTypes accumulates the content-type declarations of a package and
// serializes them as a "[Content_Types].xml" document.
//
// Entries keep their insertion order. Registering the same key twice keeps
// the original position and overwrites the value.
type ContentTypes struct {
	defaults  []typeEntry
	overrides []typeEntry
	index     map[string]int
}

// NewContentTypes returns an empty registry.
func NewContentTypes() *ContentTypes {
	return &ContentTypes{index: make(map[string]int)}
}

// AddContent registers or overwrites the content type declared for a part.
// partName is the full part URI including the leading slash.
func (ct *ContentTypes) AddContent(partName, contentType string) {
	if i, ok := ct.index[partName]; ok {
		ct.overrides[i].value = contentType
		return
	}
	ct.index[partName] = len(ct.overrides)
	ct.overrides = append(ct.overrides, typeEntry{key: partName, value: contentType})
}

// AddDefault registers an extension-based default content type. The
// converter never populates defaults; the method exists so the Default
// serialization branch stays honorable if a caller ever needs it.
func (ct *ContentTypes) AddDefault(extension, contentType string) {
	ct.defaults = append(ct.defaults, typeEntry{key: extension, value: contentType})
}

// XMLData serializes the registry as a compact UTF-8 document: an XML
// declaration followed by a Types element with one Default child per
// default entry and one Override child per override entry. No whitespace
// is inserted between elements and nothing follows the root element.
func (ct *ContentTypes) XMLData() ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", xmlDeclaration)

	types := doc.CreateElement("Types")
	types.CreateAttr("xmlns", contentTypesNS)

	for _, e := range ct.defaults {
		node := types.CreateElement("Default")
		node.CreateAttr("Extension", e.key)
		node.CreateAttr("ContentType", e.value)
	}
	for _, e := range ct.overrides {
		node := types.CreateElement("Override")
		node.CreateAttr("PartName", e.key)
		node.CreateAttr("ContentType", e.value)
	}

	return doc.WriteToBytes()
}
