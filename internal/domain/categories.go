package domain

// CategoryNone is the sentinel returned when no keyword set matches a
// product name.
const CategoryNone = "Sin categoría"

// Category names a product grouping together with the keywords that must all
// appear in a product's name for it to belong.
type Category struct {
	Name     string
	Keywords []string
}

// Categories returns the category definitions in evaluation order. The order
// is significant: several keyword sets overlap (base categories and their
// specialised variants) and the first match wins, so existing catalog data
// depends on this exact sequence.
func Categories() []Category {
	return []Category{
		{Name: "Camiseta Oversize", Keywords: []string{"Camiseta", "Oversize"}},
		{Name: "Camiseta Estampado Boxy Fit Original", Keywords: []string{"Camiseta", "Boxy", "Fit", "Original"}},
		{Name: "Camiseta Estampado Boxy Fit Premium", Keywords: []string{"Camiseta", "Boxy", "Fit", "Premium"}},
		{Name: "Jogger", Keywords: []string{"Jogger"}},
		{Name: "Hoodie Oversize", Keywords: []string{"Hoodie", "Oversize Fit"}},
		{Name: "Hoodie Oversize con Cierre", Keywords: []string{"Hoodie Oversize", "con Cierre"}},
		{Name: "Pantaloneta", Keywords: []string{"Pantaloneta"}},
		{Name: "Hoodie Relaxed Fit", Keywords: []string{"Hoodie", "Relaxed"}},
		{Name: "Camiseta Boxy Polo", Keywords: []string{"Camiseta", "Boxy", "Polo"}},
		{Name: "Colección Exclusiva", Keywords: []string{"Twofold"}},
		{Name: "Pantalones", Keywords: []string{"Pantalon"}},
	}
}

// CategoryNames returns the declared names in evaluation order.
func CategoryNames() []string {
	defs := Categories()
	names := make([]string, 0, len(defs))
	for _, def := range defs {
		names = append(names, def.Name)
	}
	return names
}
