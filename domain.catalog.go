package main

import (
	"bytes"
	_ "embed"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yml
var embeddedCatalog []byte

var ErrDuplicateBookID = errors.New("duplicate book id")

// Book represents a book entity.
type Book struct {
	ID     int    `yaml:"id" json:"id" validate:"gt=0,lte=2147483647"`
	Title  string `yaml:"title" json:"title" validate:"required"`
	Year   int    `yaml:"year" json:"year" validate:"gt=0,lte=9999"`
	ImgURL string `yaml:"img_url" json:"img_url" validate:"required,url"`
}

// Details represents the description of the books series.
type Details struct {
	Description string `yaml:"description" json:"description" validate:"required"`
	AuthorImg   string `yaml:"author_img" json:"author_img" validate:"required,url"`
	ImgCover    string `yaml:"img_cover" json:"img_cover" validate:"required,url"`
}

// catalogDocument is the on-disk shape of a catalog.
type catalogDocument struct {
	Details Details `yaml:"details"`
	Books   []Book  `yaml:"books"`
}

// Catalog is the read-only store of the series details and its books.
// It is built once at startup and never mutated afterwards.
type Catalog struct {
	details Details
	books   []Book
}

// NewCatalog validates the given records and provides a Catalog owning
// its own copy of them. Books keep the order they were given in.
func NewCatalog(details Details, books []Book) (*Catalog, error) {
	validate := validator.New()
	if err := validate.Struct(details); err != nil {
		return nil, errors.Wrap(err, "invalid details")
	}

	seen := make(map[int]struct{}, len(books))
	for i, book := range books {
		if err := validate.Struct(book); err != nil {
			return nil, errors.Wrapf(err, "invalid book at position %d", i)
		}
		if _, ok := seen[book.ID]; ok {
			return nil, errors.Wrapf(ErrDuplicateBookID, "id %d", book.ID)
		}
		seen[book.ID] = struct{}{}
	}

	return &Catalog{
		details: details,
		books:   append([]Book(nil), books...),
	}, nil
}

// LoadCatalog decodes a yaml catalog document and builds the Catalog from it.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var doc catalogDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode catalog")
	}
	return NewCatalog(doc.Details, doc.Books)
}

// DefaultCatalog provides the catalog compiled into the binary.
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(bytes.NewReader(embeddedCatalog))
}

// Details returns the series details.
func (c *Catalog) Details() Details {
	return c.details
}

// Books returns a copy of all books in their original order.
func (c *Catalog) Books() []Book {
	return append([]Book(nil), c.books...)
}

// Len returns the number of books.
func (c *Catalog) Len() int {
	return len(c.books)
}
