package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

// HiddenArticleFrom is the first article number that is not shown publicly.
const HiddenArticleFrom = 1000

var articleRe = regexp.MustCompile(`(\d+)(?:[\s\p{Z}]|$)`)

// Article returns the product's article: the first number in the name that
// ends a word (any Unicode space counts as a word end), otherwise the last dash-separated part of the ID. number is
// valid only when ok is true.
func (p *Product) Article() (article string, number int, ok bool) {
	if m := articleRe.FindStringSubmatch(p.Name); m != nil {
		article = m[1]
	} else if i := strings.LastIndexByte(p.ID, '-'); i >= 0 {
		article = p.ID[i+1:]
	} else {
		article = p.ID
	}
	n, err := strconv.Atoi(article)
	if err != nil {
		return article, 0, false
	}
	return article, n, true
}

// Visible reports whether the product has a numeric article below
// HiddenArticleFrom.
func (p *Product) Visible() bool {
	_, n, ok := p.Article()
	return ok && n < HiddenArticleFrom
}

// Visible returns a copy of the catalog holding only visible products.
// Categories left without products are omitted.
func (c *Catalog) Visible() *Catalog {
	out := &Catalog{Categories: make([]*Category, 0, len(c.Categories))}
	for _, cat := range c.Categories {
		var products []*Product
		for _, p := range cat.Products {
			if p.Visible() {
				products = append(products, p)
			}
		}
		if len(products) == 0 {
			continue
		}
		cp := *cat
		cp.Products = products
		out.Categories = append(out.Categories, &cp)
	}
	return out
}

// ProductByArticle finds the first visible product with the given article.
func (c *Catalog) ProductByArticle(article string) (*Product, *Category) {
	article = strings.TrimSpace(article)
	for _, cat := range c.Categories {
		for _, p := range cat.Products {
			a, n, ok := p.Article()
			if ok && n < HiddenArticleFrom && a == article {
				return p, cat
			}
		}
	}
	return nil, nil
}
