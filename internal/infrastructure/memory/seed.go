package memory

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jhoicas/kardex/internal/domain/entity"
)

// Seed maestro inicial para el libro en memoria.
type Seed struct {
	Products []struct {
		ID             string `json:"id"`
		BranchID       string `json:"branch_id"`
		SKU            string `json:"sku"`
		Name           string `json:"name"`
		Type           string `json:"type"`
		IsStockTracked *bool  `json:"is_stock_tracked"`
	} `json:"products"`
	Warehouses []struct {
		ID       string `json:"id"`
		BranchID string `json:"branch_id"`
		Name     string `json:"name"`
	} `json:"warehouses"`
}

// LoadSeed registra en el store los productos y bodegas leídos de r.
// type vacío es goods; is_stock_tracked ausente es true.
func (s *Store) LoadSeed(r io.Reader) error {
	var seed Seed
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return fmt.Errorf("decodificar maestro: %w", err)
	}
	for _, p := range seed.Products {
		if p.ID == "" || p.BranchID == "" {
			return fmt.Errorf("producto sin id o sucursal: %+v", p)
		}
		typ := p.Type
		if typ == "" {
			typ = entity.ProductTypeGoods
		}
		tracked := true
		if p.IsStockTracked != nil {
			tracked = *p.IsStockTracked
		}
		s.AddProduct(entity.Product{ID: p.ID, BranchID: p.BranchID, SKU: p.SKU, Name: p.Name, Type: typ, IsStockTracked: tracked})
	}
	for _, w := range seed.Warehouses {
		if w.ID == "" || w.BranchID == "" {
			return fmt.Errorf("bodega sin id o sucursal: %+v", w)
		}
		s.AddWarehouse(entity.Warehouse{ID: w.ID, BranchID: w.BranchID, Name: w.Name})
	}
	return nil
}

// LoadSeedFile abre path y llama LoadSeed; path vacío no hace nada.
func (s *Store) LoadSeedFile(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.LoadSeed(f)
}
