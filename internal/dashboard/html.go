package dashboard

const catalogHTML = `<!DOCTYPE html>
<html lang="ru">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Каталог продукции</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { font-family: -apple-system, system-ui, sans-serif; background: #f8fafc; color: #1e293b; }
        .header { background: #1e293b; color: #f1f5f9; padding: 1.5rem 2rem; display: flex; justify-content: space-between; align-items: center; }
        .header h1 { font-size: 1.5rem; }
        .header .total { font-size: 0.875rem; color: #94a3b8; }
        .category-block { padding: 1.5rem 2rem; }
        .category-title { font-size: 1.25rem; margin-bottom: 1rem; border-bottom: 2px solid #38bdf8; padding-bottom: 0.5rem; }
        .products-grid { display: grid; grid-template-columns: repeat(auto-fill, minmax(240px, 1fr)); gap: 1rem; }
        .product-card { background: #fff; border: 1px solid #e2e8f0; border-radius: 12px; padding: 1.25rem; }
        .product-article { display: inline-block; font-size: 0.75rem; font-weight: 700; color: #0369a1; background: #e0f2fe; border-radius: 9999px; padding: 0.125rem 0.625rem; margin-bottom: 0.5rem; }
        .product-title { font-size: 1rem; margin-bottom: 0.5rem; }
        .product-description { font-size: 0.875rem; color: #475569; }
        .product-consumption { font-size: 0.75rem; color: #64748b; margin-top: 0.5rem; }
        .product-more-link { display: inline-block; margin-top: 0.75rem; font-size: 0.875rem; color: #0284c7; text-decoration: none; }
        .stats { padding: 1rem 2rem; font-size: 0.75rem; color: #64748b; }
        .stats span { margin-right: 1rem; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Каталог продукции</h1>
        <span class="total">{{.Total}} товаров</span>
    </div>
    {{range .Categories}}
    <div class="category-block" id="category-{{.ID}}">
        <h3 class="category-title">{{.Name}}</h3>
        <div class="products-grid">
            {{range .Products}}
            <div class="product-card" data-product-id="{{.ID}}">
                <span class="product-article">{{.Article}}</span>
                <h4 class="product-title">{{.Name}}</h4>
                <p class="product-description">{{.Preview}}</p>
                {{if .Consumption}}<p class="product-consumption">Расход: {{.Consumption}}</p>{{end}}
                {{if .URL}}<a class="product-more-link" href="{{.URL}}">Подробнее →</a>{{end}}
            </div>
            {{end}}
        </div>
    </div>
    {{end}}
    {{if .Stats}}
    <div class="stats">
        {{range $name, $value := .Stats}}<span>{{$name}}: {{$value}}</span>{{end}}
    </div>
    {{end}}
</body>
</html>
`
