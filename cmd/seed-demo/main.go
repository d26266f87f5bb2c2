// seed-demo bootstraps a development database with a demo business, its
// operator user and a minimal set of masters so the API is usable right
// after startup.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-demo
package main

import (
	"context"
	"fmt"
	"os"

	"bitbucket.org/sistematicapy/taller_backend/config"
	"bitbucket.org/sistematicapy/taller_backend/models"
	"bitbucket.org/sistematicapy/taller_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	demoBusinessName = "Taller Demo"
	demoUsername     = "tallerDemo"
	demoUserName     = "Demo Operator"
)

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fatalf("database not initialized (config.GetDB returned nil). Set DB_* env vars.")
	}

	models.MigrateTable()

	var business models.Business
	err := db.WithContext(ctx).Where("name = ?", demoBusinessName).First(&business).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fatalf("failed to lookup business: %v", err)
		}
		created, err := models.CreateBusiness(ctx, &models.NewBusiness{Name: demoBusinessName})
		if err != nil {
			fatalf("failed to create business: %v", err)
		}
		business = *created
		fmt.Println("created business", business.ID)
	}

	businessId := business.ID.String()
	ctx = utils.SetBusinessIdInContext(ctx, businessId)
	ctx = utils.SetUserNameInContext(ctx, demoUserName)
	ctx = utils.SetUsernameInContext(ctx, demoUsername)

	var user models.User
	err = db.WithContext(ctx).Where("username = ?", demoUsername).First(&user).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fatalf("failed to lookup user: %v", err)
		}
		user = models.User{
			BusinessId: businessId,
			Username:   demoUsername,
			Name:       demoUserName,
		}
		if err := db.WithContext(ctx).Create(&user).Error; err != nil {
			fatalf("failed to create user: %v", err)
		}
		fmt.Println("created user", user.Username)
	}

	// Masters are only seeded into an empty business.
	warehouses, err := models.GetWarehouses(ctx)
	if err != nil {
		fatalf("failed to list warehouses: %v", err)
	}
	if len(warehouses) > 0 {
		fmt.Println("masters already present, nothing to seed")
		return
	}

	for _, w := range []models.NewWarehouse{
		{Name: "Deposito Central", Address: "Avda. Mcal. Lopez 1234, Asuncion"},
		{Name: "Taller San Lorenzo", Address: "Ruta 2 km 18, San Lorenzo"},
	} {
		if _, err := models.CreateWarehouse(ctx, &w); err != nil {
			fatalf("failed to create warehouse %s: %v", w.Name, err)
		}
	}

	for _, p := range []models.NewProduct{
		{Name: "Compresor 1/4 HP", Sku: "COMP-014", PurchasePrice: decimal.NewFromInt(350000), SalePrice: decimal.NewFromInt(490000), VatRate: models.VatRate10},
		{Name: "Gas refrigerante R410A", Sku: "GAS-410", PurchasePrice: decimal.NewFromInt(80000), SalePrice: decimal.NewFromInt(120000), VatRate: models.VatRate10},
		{Name: "Placa electronica split 12000", Sku: "PLC-120", PurchasePrice: decimal.NewFromInt(220000), SalePrice: decimal.NewFromInt(330000), VatRate: models.VatRate10},
	} {
		if _, err := models.CreateProduct(ctx, &p); err != nil {
			fatalf("failed to create product %s: %v", p.Name, err)
		}
	}

	if _, err := models.CreateSupplier(ctx, &models.NewSupplier{
		Name:  "Importadora del Este S.A.",
		TaxId: "80012345-6",
	}); err != nil {
		fatalf("failed to create supplier: %v", err)
	}

	if _, err := models.CreateClient(ctx, &models.NewClient{
		Name:     "Juan Gonzalez",
		IdNumber: "3456789",
	}); err != nil {
		fatalf("failed to create client: %v", err)
	}

	if _, err := models.CreateTechnician(ctx, &models.NewTechnician{
		Name: "Carlos Benitez",
	}); err != nil {
		fatalf("failed to create technician: %v", err)
	}

	fmt.Println("seeded demo data for business", businessId)
	fmt.Println("send x-business-id:", businessId, "and x-user-name:", demoUserName, "on API requests")
}
