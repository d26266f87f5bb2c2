package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/sistematicapy/taller_backend/models"
	"bitbucket.org/sistematicapy/taller_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// respondError maps the error taxonomy onto HTTP statuses. Unknown errors
// never leak their message.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var status int
	switch models.KindOf(err) {
	case models.ErrorKindValidation:
		status = http.StatusBadRequest
	case models.ErrorKindNotFound:
		status = http.StatusNotFound
	case models.ErrorKindInsufficientStock,
		models.ErrorKindInvalidStateTransition,
		models.ErrorKindTransactionConflict:
		status = http.StatusConflict
	default:
		if errors.Is(err, utils.ErrorRecordNotFound) {
			status = http.StatusNotFound
			break
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}
	c.JSON(status, gin.H{"kind": models.KindOf(err), "message": err.Error()})
}

func respondBindingError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, gin.H{
			"kind":   models.ErrorKindValidation,
			"fields": utils.ProcessValidationErrors(err),
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"kind": models.ErrorKindValidation, "message": err.Error()})
}

func handleCreate[I any, O any](fn func(context.Context, *I) (*O, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input I
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}
		result, err := fn(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

func handleGetById[O any](fn func(context.Context, int) (*O, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"kind": models.ErrorKindValidation, "message": "invalid id"})
			return
		}
		result, err := fn(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func handleList[O any](fn func(context.Context) ([]*O, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		results, err := fn(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, results)
	}
}

func queryInt(c *gin.Context, name string, fallback int) int {
	if v, err := strconv.Atoi(c.Query(name)); err == nil {
		return v
	}
	return fallback
}

func stockMovementsHandler(c *gin.Context) {
	productId := queryInt(c, "product_id", 0)
	if productId == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"kind": models.ErrorKindValidation, "message": "product_id is required"})
		return
	}
	movements, err := models.GetStockMovements(c.Request.Context(), productId, queryInt(c, "limit", 50))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, movements)
}

func stocksHandler(c *gin.Context) {
	warehouseId := queryInt(c, "warehouse_id", 0)
	if warehouseId == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"kind": models.ErrorKindValidation, "message": "warehouse_id is required"})
		return
	}
	stocks, err := models.GetAvailableStocks(c.Request.Context(), warehouseId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stocks)
}

func stockOnHandHandler(c *gin.Context) {
	warehouseId := queryInt(c, "warehouse_id", 0)
	productId := queryInt(c, "product_id", 0)
	if warehouseId == 0 || productId == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"kind": models.ErrorKindValidation, "message": "warehouse_id and product_id are required"})
		return
	}
	qty, err := models.GetStockOnHand(c.Request.Context(), warehouseId, productId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"warehouse_id": warehouseId, "product_id": productId, "qty": qty})
}

func confirmPurchaseOrderHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"kind": models.ErrorKindValidation, "message": "invalid id"})
		return
	}
	order, err := models.ConfirmPurchaseOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func resolveServiceQuoteHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"kind": models.ErrorKindValidation, "message": "invalid id"})
		return
	}
	var input models.QuoteDecision
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}
	quote, err := models.ResolveServiceQuote(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func serviceItemsHandler(c *gin.Context) {
	state := models.ServiceItemState(c.Query("state"))
	items, err := models.GetServiceItems(c.Request.Context(), state)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func vatBookHandler(c *gin.Context) {
	year := queryInt(c, "year", 0)
	month := queryInt(c, "month", 0)
	if year == 0 || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"kind": models.ErrorKindValidation, "message": "year and month are required"})
		return
	}
	entries, err := models.GetVatBookEntries(c.Request.Context(), year, time.Month(month))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func registerRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")

	api.POST("/businesses", handleCreate(models.CreateBusiness))
	api.POST("/warehouses", handleCreate(models.CreateWarehouse))
	api.GET("/warehouses", handleList(models.GetWarehouses))
	api.GET("/warehouses/:id", handleGetById(models.GetWarehouse))
	api.POST("/products", handleCreate(models.CreateProduct))
	api.GET("/products", handleList(models.GetProducts))
	api.GET("/products/:id", handleGetById(models.GetProduct))
	api.POST("/suppliers", handleCreate(models.CreateSupplier))
	api.GET("/suppliers", handleList(models.GetSuppliers))
	api.GET("/suppliers/:id", handleGetById(models.GetSupplier))
	api.POST("/clients", handleCreate(models.CreateClient))
	api.GET("/clients", handleList(models.GetClients))
	api.GET("/clients/:id", handleGetById(models.GetClient))
	api.POST("/technicians", handleCreate(models.CreateTechnician))
	api.GET("/technicians", handleList(models.GetTechnicians))

	api.POST("/stock-adjustments", handleCreate(models.CreateStockAdjustment))
	api.POST("/stock-transfers", handleCreate(models.CreateStockTransfer))
	api.GET("/stock-movements", stockMovementsHandler)
	api.GET("/stocks", stocksHandler)
	api.GET("/stocks/on-hand", stockOnHandHandler)

	api.POST("/purchase-orders", handleCreate(models.CreatePurchaseOrder))
	api.GET("/purchase-orders", handleList(models.GetPurchaseOrders))
	api.GET("/purchase-orders/:id", handleGetById(models.GetPurchaseOrder))
	api.POST("/purchase-orders/:id/confirm", confirmPurchaseOrderHandler)
	api.POST("/purchase-invoices", handleCreate(models.CreatePurchaseInvoiceFromReceiving))
	api.GET("/purchase-invoices", handleList(models.GetPurchaseInvoices))
	api.GET("/purchase-invoices/:id", handleGetById(models.GetPurchaseInvoice))
	api.GET("/purchase-invoices/:id/chain", handleGetById(models.GetPurchaseChain))
	api.POST("/credit-notes", handleCreate(models.ApplyCreditNote))
	api.GET("/credit-notes/:id", handleGetById(models.GetCreditNote))
	api.POST("/debit-notes", handleCreate(models.ApplyDebitNote))
	api.GET("/debit-notes/:id", handleGetById(models.GetDebitNote))
	api.GET("/payables", handleList(models.GetPayables))
	api.GET("/payables/:id", handleGetById(models.GetPayable))
	api.GET("/vat-book", vatBookHandler)

	api.POST("/receptions", handleCreate(models.CreateReception))
	api.GET("/receptions/:id", handleGetById(models.GetReception))
	api.GET("/service-items", serviceItemsHandler)
	api.GET("/service-items/:id", handleGetById(models.GetServiceItem))
	api.GET("/service-items/:id/chain", handleGetById(models.GetServiceItemChain))
	api.POST("/diagnoses", handleCreate(models.DiagnoseServiceItem))
	api.POST("/service-quotes", handleCreate(models.CreateServiceQuote))
	api.GET("/service-quotes/:id", handleGetById(models.GetServiceQuote))
	api.POST("/service-quotes/:id/resolve", resolveServiceQuoteHandler)
	api.POST("/work-records", handleCreate(models.CompleteWork))
	api.GET("/work-records/:id", handleGetById(models.GetWorkRecord))
	api.POST("/pickups", handleCreate(models.RegisterPickup))
	api.GET("/pickups/:id", handleGetById(models.GetPickupRecord))
	api.POST("/warranty-claims", handleCreate(models.FileWarrantyClaim))
	api.GET("/warranties/:id", handleGetById(models.GetWarranty))
}
