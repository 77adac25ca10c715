package events

const (
	TopicOrderCreated       = "order.created"
	TopicOrderCancelled     = "order.cancelled"
	TopicOrderStatusChanged = "order.status.changed"
	TopicReturnRequested    = "return.requested"
	TopicReturnUpdated      = "return.updated"
	TopicRefundProcessed    = "refund.processed"
	TopicLowStock           = "inventory.low_stock"

	// Dipublish oleh sistem fulfillment eksternal, kita konsumsi.
	TopicFulfillment = "order.fulfillment"
)

// Partition key = order_id (atau product_id utk event stok),
// supaya semua event 1 entity maintain urutan.
func PartitionKey(id string) []byte { return []byte(id) }
