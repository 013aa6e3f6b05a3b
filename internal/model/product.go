package model

// CachedProduct is the read-through cache of server product metadata.
type CachedProduct struct {
	ID            int64   `json:"id" db:"id" bson:"_id"`
	Barcode       string  `json:"barcode" db:"barcode" bson:"barcode"`
	Code          string  `json:"code" db:"code" bson:"code"`
	Name          string  `json:"name" db:"name" bson:"name"`
	UoM           string  `json:"uom,omitempty" db:"uom" bson:"uom"`
	UoMID         int64   `json:"uom_id,omitempty" db:"uom_id" bson:"uom_id"`
	StandardPrice float64 `json:"standard_price" db:"standard_price" bson:"standard_price"`
	Tracking      string  `json:"tracking,omitempty" db:"tracking" bson:"tracking"`
	ImageURL      string  `json:"image_url,omitempty" db:"image_url" bson:"image_url"`
}
