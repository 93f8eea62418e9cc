package payment

import (
	"github.com/bwmarrin/snowflake"
	"github.com/pkg/errors"

	"github.com/trezcool/bursary/core"
)

const receiptPrefix = "RCP"

// ReceiptGenerator issues globally unique receipt numbers.
type ReceiptGenerator interface {
	Next(date core.Date) string
}

type snowflakeReceipts struct {
	node *snowflake.Node
}

var _ ReceiptGenerator = (*snowflakeReceipts)(nil)

// NewReceiptGenerator returns a generator issuing `RCP<yyyymmdd><snowflake id>` receipt numbers.
// Every running instance must use its own node number (0..1023).
func NewReceiptGenerator(node int64) (ReceiptGenerator, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, errors.Wrap(err, "creating snowflake node")
	}
	return &snowflakeReceipts{node: n}, nil
}

func (g *snowflakeReceipts) Next(date core.Date) string {
	return receiptPrefix + date.Time().Format("20060102") + g.node.Generate().String()
}
