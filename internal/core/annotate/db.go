package annotate

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/flowtrace/flowtrace/internal/core/trace"
)

// Document is the JSON wire form of one annotation.
type Document struct {
	Language string `json:"language" validate:"required"`
	Package  string `json:"package" validate:"required"`
	ID       string `json:"id" validate:"required"`
	Kind     string `json:"kind" validate:"required,oneof=function object"`
	// Module is the defining module of the annotated function or type; it
	// matches by prefix so one annotation covers a package and its
	// submodules. Built-in types leave it empty.
	Module   string    `json:"module,omitempty"`
	QualName string    `json:"qual_name" validate:"required"`
	Domain   []Role    `json:"domain,omitempty"`
	Codomain []Role    `json:"codomain,omitempty"`
	Slots    []SlotDef `json:"slots,omitempty"`
}

// DB is an in-memory annotation registry implementing Annotator. Documents
// are validated on registration; lookups never fail, they return nil.
type DB struct {
	validate  *validator.Validate
	functions []*Document
	objects   []*Document
}

// NewDB creates an empty annotation registry.
func NewDB() *DB {
	return &DB{validate: validator.New()}
}

// Register adds one annotation document to the registry.
func (db *DB) Register(doc *Document) error {
	if doc == nil {
		return ErrNilDocument
	}
	if err := db.validate.Struct(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	switch doc.Kind {
	case "function":
		db.functions = append(db.functions, doc)
	case "object":
		db.objects = append(db.objects, doc)
	}
	return nil
}

// LoadFile loads a JSON array of annotation documents from disk.
func (db *DB) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading annotation file: %w", err)
	}
	return db.Load(data)
}

// Load registers a JSON array of annotation documents.
func (db *DB) Load(data []byte) error {
	var docs []*Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	for _, doc := range docs {
		if err := db.Register(doc); err != nil {
			return err
		}
	}
	return nil
}

// NotateFunction resolves the annotation for a callee, or nil.
func (db *DB) NotateFunction(ref *trace.FuncRef) *FuncAnnotation {
	if ref == nil {
		return nil
	}
	doc := matchDocument(db.functions, ref.Module, ref.QualName)
	if doc == nil {
		return nil
	}
	return &FuncAnnotation{
		Key:      Key{Language: doc.Language, Package: doc.Package, ID: doc.ID},
		Domain:   doc.Domain,
		Codomain: doc.Codomain,
	}
}

// NotateObject resolves the annotation for a value's runtime type, or nil.
func (db *DB) NotateObject(v any) *ObjectAnnotation {
	if v == nil {
		return nil
	}
	module, qualName := trace.TypeName(v)
	if qualName == "" {
		return nil
	}
	doc := matchDocument(db.objects, module, qualName)
	if doc == nil {
		return nil
	}
	return &ObjectAnnotation{
		Key:   Key{Language: doc.Language, Package: doc.Package, ID: doc.ID},
		Slots: doc.Slots,
	}
}

// matchDocument picks the document with the longest module prefix matching
// the given module and an exact qualified-name match.
func matchDocument(docs []*Document, module, qualName string) *Document {
	var best *Document
	for _, doc := range docs {
		if doc.QualName != qualName || !modulePrefix(doc.Module, module) {
			continue
		}
		if best == nil || len(doc.Module) > len(best.Module) {
			best = doc
		}
	}
	return best
}

func modulePrefix(prefix, module string) bool {
	if prefix == "" {
		return module == ""
	}
	return module == prefix || strings.HasPrefix(module, prefix+"/") || strings.HasPrefix(module, prefix+".")
}
