package inventory

import "time"

// Inventory adalah stok satu product (1:1). Mutasi hanya lewat method di
// bawah supaya invariant 0 <= reserved <= quantity selalu kejaga.
type Inventory struct {
	ProductID         string
	Quantity          int // total unit yang dimiliki
	Reserved          int // unit yang lagi ditahan utk order in-flight
	LowStockThreshold int
	UpdatedAt         time.Time
}

// Available = stok yang boleh dijual sekarang.
func (i *Inventory) Available() int {
	if a := i.Quantity - i.Reserved; a > 0 {
		return a
	}
	return 0
}

func (i *Inventory) IsLowStock() bool {
	return i.Available() <= i.LowStockThreshold
}

func (i *Inventory) IsInStock() bool {
	return i.Available() > 0
}

// Reserve menahan qty unit. Gagal (state tidak berubah) kalau available kurang.
func (i *Inventory) Reserve(qty int) error {
	if qty <= 0 {
		return &InsufficientStockError{ProductID: i.ProductID, Requested: qty, Available: i.Available()}
	}
	if i.Available() < qty {
		return &InsufficientStockError{ProductID: i.ProductID, Requested: qty, Available: i.Available()}
	}
	i.Reserved += qty
	return nil
}

// Release mengembalikan reservation, floor di 0. Selalu sukses.
func (i *Inventory) Release(qty int) {
	i.Reserved -= qty
	if i.Reserved < 0 {
		i.Reserved = 0
	}
}

// Confirm mengubah hold jadi pengurangan permanen (unit keluar gudang).
func (i *Inventory) Confirm(qty int) error {
	if qty <= 0 || qty > i.Reserved {
		return &InvalidAdjustmentError{ProductID: i.ProductID, Delta: -qty}
	}
	i.Quantity -= qty
	i.Reserved -= qty
	return nil
}

// Adjust menambah/mengurangi quantity saja (restock / koreksi shrinkage).
// Ditolak kalau hasilnya melanggar invariant.
func (i *Inventory) Adjust(delta int) error {
	q := i.Quantity + delta
	if q < 0 || q < i.Reserved {
		return &InvalidAdjustmentError{ProductID: i.ProductID, Delta: delta}
	}
	i.Quantity = q
	return nil
}
