package entity

// ProductInfo metadatos de solo lectura del catálogo (título, SKU, miniatura).
type ProductInfo struct {
	ID        string
	SKU       string
	Title     string
	Thumbnail string
}

// WarehouseInfo metadatos de solo lectura de la bodega.
type WarehouseInfo struct {
	ID   string
	Name string
}
