package main

import (
	"strconv"

	"github.com/graph-gophers/graphql-go"
)

// Resolver is the root resolver bound to the Query type.
type Resolver struct {
	details *DetailsResolver
	books   []*BookResolver
}

// NewResolver builds the root resolver from the catalog. The field
// resolvers are created once since the catalog never changes.
func NewResolver(catalog *Catalog) *Resolver {
	books := catalog.Books()
	r := &Resolver{
		details: &DetailsResolver{catalog.Details()},
		books:   make([]*BookResolver, 0, len(books)),
	}
	for _, b := range books {
		r.books = append(r.books, &BookResolver{b})
	}
	return r
}

// Details resolves Query.details.
func (r *Resolver) Details() *DetailsResolver {
	return r.details
}

// Books resolves Query.books.
func (r *Resolver) Books() *[]*BookResolver {
	return &r.books
}

// BookResolver resolves the fields of the Book type.
type BookResolver struct {
	b Book
}

func (br *BookResolver) ID() *graphql.ID {
	id := graphql.ID(strconv.Itoa(br.b.ID))
	return &id
}

func (br *BookResolver) Title() *string {
	return &br.b.Title
}

func (br *BookResolver) Year() *int32 {
	year := int32(br.b.Year)
	return &year
}

func (br *BookResolver) ImgURL() *string {
	return &br.b.ImgURL
}

// DetailsResolver resolves the fields of the Details type.
type DetailsResolver struct {
	d Details
}

func (dr *DetailsResolver) AuthorImg() *string {
	return &dr.d.AuthorImg
}

func (dr *DetailsResolver) Description() *string {
	return &dr.d.Description
}

func (dr *DetailsResolver) ImgCover() *string {
	return &dr.d.ImgCover
}
