package httpserver

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageNames = []string{"index.html", "category.html", "product.html", "search.html", "cart.html", "error.html"}

var templateFuncs = template.FuncMap{
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"money": func(f float64) string {
		return strings.Replace(fmt.Sprintf("%.2f €", f), ".", ",", 1)
	},
}

// pageData is handed to every template; Content is page specific
type pageData struct {
	Title   string
	Query   string
	Content any
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(templatesFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := s.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Errorf("❌ Failed to render %s: %v", name, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, status int, msg string) {
	s.render(w, status, "error.html", pageData{Title: http.StatusText(status), Content: msg})
}

func (s *Server) renderUpstreamError(w http.ResponseWriter, err error) {
	status, msg := upstreamStatus(err)
	s.renderError(w, status, msg)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	tree, err := s.catalog.Categories(r.Context())
	if err != nil {
		log.Warnf("⚠️ Failed to fetch category tree: %v", err)
		s.renderUpstreamError(w, err)
		return
	}
	if len(tree.Results) == 0 {
		s.renderError(w, http.StatusNotFound, "no categories available")
		return
	}

	s.render(w, http.StatusOK, "index.html", pageData{Title: "Categories", Content: tree})
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := strconv.Atoi(chi.URLParam(r, "categoryID"))
	if err != nil {
		s.renderError(w, http.StatusNotFound, "not found")
		return
	}

	detail, err := s.catalog.Category(r.Context(), categoryID)
	if err != nil {
		log.Warnf("⚠️ Failed to fetch category %d: %v", categoryID, err)
		s.renderUpstreamError(w, err)
		return
	}

	s.render(w, http.StatusOK, "category.html", pageData{Title: detail.Name, Content: detail})
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	detail, err := s.catalog.Product(r.Context(), productID)
	if err != nil {
		log.Warnf("⚠️ Failed to fetch product %s: %v", productID, err)
		s.renderUpstreamError(w, err)
		return
	}

	s.render(w, http.StatusOK, "product.html", pageData{Title: *detail.DisplayName, Content: detail})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	results, err := s.catalog.Search(r.Context(), query)
	if err != nil {
		log.Errorf("❌ Search failed: %v", err)
		s.renderError(w, http.StatusInternalServerError, "search failed")
		return
	}

	s.render(w, http.StatusOK, "search.html", pageData{Title: "Search", Query: query, Content: results})
}

func (s *Server) handleSyncPage(w http.ResponseWriter, r *http.Request) {
	if !s.sync.Trigger() {
		log.Info("⏳ Sync requested while another run is in progress")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleCartPage(w http.ResponseWriter, r *http.Request) {
	view, err := s.cart.View(r.Context(), sessionID(r))
	if err != nil {
		log.Errorf("❌ Failed to build cart: %v", err)
		s.renderError(w, http.StatusInternalServerError, "cart unavailable")
		return
	}

	s.render(w, http.StatusOK, "cart.html", pageData{Title: "Cart", Content: view})
}

func (s *Server) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	quantity := formQuantity(r, 1)
	if err := s.cart.Add(r.Context(), sessionID(r), r.FormValue("product_id"), quantity); err != nil {
		s.renderCartError(w, err)
		return
	}
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

func (s *Server) handleCartUpdate(w http.ResponseWriter, r *http.Request) {
	quantity := formQuantity(r, 0)
	if err := s.cart.SetQuantity(r.Context(), sessionID(r), r.FormValue("product_id"), quantity); err != nil {
		s.renderCartError(w, err)
		return
	}
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

func (s *Server) handleCartRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.cart.Remove(r.Context(), sessionID(r), r.FormValue("product_id")); err != nil {
		s.renderCartError(w, err)
		return
	}
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

func (s *Server) renderCartError(w http.ResponseWriter, err error) {
	status, msg := cartStatus(err)
	if status == http.StatusInternalServerError {
		log.Errorf("❌ Cart update failed: %v", err)
	}
	s.renderError(w, status, msg)
}

// formQuantity reads the quantity field, falling back to def when it is
// missing or not a number
func formQuantity(r *http.Request, def int) int {
	raw := strings.TrimSpace(r.FormValue("quantity"))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
