package scenario

import (
	"context"
	"fmt"
	"time"
)

const (
	MinProductID = 1
	MaxProductID = 500

	GetProductWeight    = 10
	CreateProductWeight = 1

	Manufacturer = "Load Test Inc."
	SKUPrefix    = "LOCUST-TEST-"
)

// Request names used for stats grouping.
const (
	ProductName        = "/products/[id]"
	ProductDetailsName = "/products/[id]/details"
)

// ProductRecord is the body of a create_product request.
type ProductRecord struct {
	ProductID    int    `json:"product_id"`
	SKU          string `json:"sku"`
	Manufacturer string `json:"manufacturer"`
	CategoryID   int    `json:"category_id"`
	Weight       int    `json:"weight"`
	SomeOtherID  int    `json:"some_other_id"`
}

func NewProductRecord(productID int) ProductRecord {
	return ProductRecord{
		ProductID:    productID,
		SKU:          fmt.Sprintf("%s%d", SKUPrefix, productID),
		Manufacturer: Manufacturer,
		CategoryID:   1,
		Weight:       200,
		SomeOtherID:  300,
	}
}

func ProductPath(productID int) string {
	return fmt.Sprintf("/products/%d", productID)
}

func ProductDetailsPath(productID int) string {
	return fmt.Sprintf("/products/%d/details", productID)
}

// ProductUser reads products ten times as often as it writes product details,
// pausing 1-5s between tasks.
type ProductUser struct {
	IDs   IDGenerator
	Wait  WaitTimeFunc
	table *TaskTable
}

func NewProductUser(ids IDGenerator) *ProductUser {
	u := &ProductUser{
		IDs:  ids,
		Wait: Between(1*time.Second, 5*time.Second),
	}
	// weights are constants, the table cannot be rejected
	u.table, _ = NewTaskTable(
		Task{Name: "get_product", Weight: GetProductWeight, Fn: u.GetProduct},
		Task{Name: "create_product", Weight: CreateProductWeight, Fn: u.CreateProduct},
	)
	return u
}

// NewProductFactory builds ProductUsers whose ids come from the user's own
// randomness.
func NewProductFactory() Factory {
	return func(r Rand) (Scenario, error) {
		return NewProductUser(NewRandomIDs(MinProductID, MaxProductID, r)), nil
	}
}

func (u *ProductUser) WaitTime() WaitTimeFunc { return u.Wait }

func (u *ProductUser) Tasks() *TaskTable { return u.table }

func (u *ProductUser) GetProduct(ctx context.Context, c Client) {
	id := u.IDs.NextID()
	c.Do(ctx, Get(ProductPath(id), ProductName))
}

func (u *ProductUser) CreateProduct(ctx context.Context, c Client) {
	id := u.IDs.NextID()
	c.Do(ctx, Post(ProductDetailsPath(id), ProductDetailsName, NewProductRecord(id)))
}
