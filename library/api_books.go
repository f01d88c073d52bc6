package library

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
)

// Books lists the full catalog.
func (c *Client) Books(ctx context.Context) ([]Book, error) {
	var out []Book
	if err := c.getJSON(ctx, "/books", "Failed to fetch books", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Book fetches a single catalog entry. A 404 maps to ErrBookNotFound.
func (c *Client) Book(ctx context.Context, id string) (*Book, error) {
	var out Book
	if err := c.getJSON(ctx, "/books/"+url.PathEscape(id), "Failed to fetch book", &out); err != nil {
		if isNotFound(err) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &out, nil
}

// BookForm holds the multipart fields for creating or updating a catalog
// entry. Cover is optional; when set, CoverName is used as the file name.
type BookForm struct {
	Title         string
	Author        string
	Category      string
	ISBN          string
	TotalCopies   int
	Description   string
	PublishedYear int
	Cover         io.Reader
	CoverName     string
}

// CreateBook adds a catalog entry (librarian operation, multipart form).
func (c *Client) CreateBook(ctx context.Context, form BookForm) (*Book, error) {
	return c.sendBookForm(ctx, http.MethodPost, "/books", form, "Failed to create book")
}

// UpdateBook replaces a catalog entry's fields (librarian operation).
func (c *Client) UpdateBook(ctx context.Context, id string, form BookForm) (*Book, error) {
	return c.sendBookForm(ctx, http.MethodPut, "/books/"+url.PathEscape(id), form, "Failed to update book")
}

func (c *Client) sendBookForm(ctx context.Context, method, path string, form BookForm, fallback string) (*Book, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := map[string]string{
		"title":       form.Title,
		"author":      form.Author,
		"category":    form.Category,
		"isbn":        form.ISBN,
		"totalCopies": strconv.Itoa(form.TotalCopies),
		"description": form.Description,
	}
	if form.PublishedYear > 0 {
		fields["publishedYear"] = strconv.Itoa(form.PublishedYear)
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("encode form: %w", err)
		}
	}
	if form.Cover != nil {
		part, err := mw.CreateFormFile("coverImage", form.CoverName)
		if err != nil {
			return nil, fmt.Errorf("encode form: %w", err)
		}
		if _, err := io.Copy(part, form.Cover); err != nil {
			return nil, fmt.Errorf("encode form: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("encode form: %w", err)
	}

	req, err := c.newRequest(ctx, method, path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	res, err := c.do(req, fallback)
	if err != nil {
		return nil, err
	}
	var out Book
	if err := decodeBody(res, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
