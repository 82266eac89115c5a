package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/retailops_backend/config"
	"bitbucket.org/mmdatafocus/retailops_backend/models"
	"bitbucket.org/mmdatafocus/retailops_backend/utils"
	"bitbucket.org/mmdatafocus/retailops_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("retailops-backend")

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// respondBindError reports malformed request bodies, breaking binding-tag
// violations down per field.
func respondBindError(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "validation failed",
			"errors":  utils.ProcessValidationErrors(err),
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
}

// statusForError maps the error taxonomy onto HTTP codes. Anything that is not
// a business error is logged and hidden behind a generic message.
func statusForError(err error) int {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, utils.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, utils.ErrAlreadyCancelled),
		errors.Is(err, utils.ErrAlreadyConverted):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrIdempotencyInProgress):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func respondError(c *gin.Context, funcName string, err error) {
	logger := config.GetLogger()
	if utils.IsBusinessError(err) || errors.Is(err, workflow.ErrIdempotencyInProgress) {
		c.JSON(statusForError(err), gin.H{"success": false, "message": err.Error()})
		return
	}
	config.LogError(logger, "server.go", funcName, "request failed", c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
}

// parseDateParam accepts YYYY-MM-DD or RFC3339; empty means open-ended.
func parseDateParam(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

func createItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewItem
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		item, err := models.CreateItem(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "createItemHandler", err)
			return
		}
		invalidateStockStatusCache()
		respondOK(c, item)
	}
}

func updateItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid id"})
			return
		}
		var input models.NewItem
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		item, err := models.UpdateItem(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, "updateItemHandler", err)
			return
		}
		respondOK(c, item)
	}
}

func getItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid id"})
			return
		}
		item, err := models.GetItem(c.Request.Context(), id)
		if err != nil {
			respondError(c, "getItemHandler", err)
			return
		}
		respondOK(c, item)
	}
}

const stockStatusCacheKey = "cache:stock_status"

// stockStatusHandler serves the dashboard poll. The report is cached briefly
// in Redis and invalidated by every stock-mutating handler.
func stockStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if cached, ok, err := config.GetRedisValue(stockStatusCacheKey); err == nil && ok {
			c.Data(http.StatusOK, "application/json", []byte(cached))
			return
		}
		rows, err := models.GetStockStatus(c.Request.Context())
		if err != nil {
			respondError(c, "stockStatusHandler", err)
			return
		}
		body, err := json.Marshal(gin.H{"success": true, "data": rows})
		if err != nil {
			respondError(c, "stockStatusHandler", err)
			return
		}
		if err := config.SetRedisValue(stockStatusCacheKey, string(body), 30*time.Second); err != nil {
			config.LogWarn(config.GetLogger(), "server.go", "stockStatusHandler",
				"failed to cache stock status", stockStatusCacheKey)
		}
		c.Data(http.StatusOK, "application/json", body)
	}
}

func invalidateStockStatusCache() {
	if err := config.RemoveRedisKey(stockStatusCacheKey); err != nil {
		config.LogWarn(config.GetLogger(), "server.go", "invalidateStockStatusCache",
			"failed to drop stock status cache", stockStatusCacheKey)
	}
}

// checkStockHandler answers "can I sell N of this item right now".
func checkStockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid id"})
			return
		}
		qty, err := utils.ParseDecimal(c.Query("qty"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid qty"})
			return
		}
		if err := workflow.CheckStock(c.Request.Context(), id, qty); err != nil {
			respondError(c, "checkStockHandler", err)
			return
		}
		respondOK(c, gin.H{"available": true})
	}
}

func stockValuationExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		buf, err := workflow.ExportStockValuationXlsx(c.Request.Context())
		if err != nil {
			respondError(c, "stockValuationExportHandler", err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="stock-valuation.xlsx"`)
		c.Data(http.StatusOK,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	}
}

func createSaleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewSaleTransaction
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		sale, err := workflow.CreateSale(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "createSaleHandler", err)
			return
		}
		invalidateStockStatusCache()
		respondOK(c, sale)
	}
}

func getSaleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid id"})
			return
		}
		sale, err := models.GetSale(c.Request.Context(), id)
		if err != nil {
			respondError(c, "getSaleHandler", err)
			return
		}
		respondOK(c, sale)
	}
}

func cancelSaleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid id"})
			return
		}
		sale, err := workflow.CancelSale(c.Request.Context(), id)
		if err != nil {
			respondError(c, "cancelSaleHandler", err)
			return
		}
		invalidateStockStatusCache()
		respondOK(c, sale)
	}
}

// listSalesHandler filters by status and date range, or looks a single sale up
// by its receipt number.
func listSalesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if receiptNo := c.Query("receipt_no"); receiptNo != "" {
			sale, err := models.GetSaleByReceiptNo(c.Request.Context(), receiptNo)
			if err != nil {
				respondError(c, "listSalesHandler", err)
				return
			}
			respondOK(c, sale)
			return
		}
		fromDate, err := parseDateParam(c.Query("from"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid from date"})
			return
		}
		toDate, err := parseDateParam(c.Query("to"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid to date"})
			return
		}
		sales, err := models.GetSales(c.Request.Context(), models.SaleStatus(c.Query("status")), fromDate, toDate)
		if err != nil {
			respondError(c, "listSalesHandler", err)
			return
		}
		respondOK(c, sales)
	}
}

func salePaymentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid id"})
			return
		}
		payments, err := models.GetPaymentsForSale(c.Request.Context(), id)
		if err != nil {
			respondError(c, "salePaymentsHandler", err)
			return
		}
		respondOK(c, payments)
	}
}

func processReturnHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		saleId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid id"})
			return
		}
		var input models.NewSaleReturn
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		input.SaleId = saleId
		saleReturn, err := workflow.ProcessReturn(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "processReturnHandler", err)
			return
		}
		invalidateStockStatusCache()
		respondOK(c, saleReturn)
	}
}

func createPurchaseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPurchase
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		purchase, err := workflow.CreatePurchase(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "createPurchaseHandler", err)
			return
		}
		invalidateStockStatusCache()
		respondOK(c, purchase)
	}
}

func createQuotationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewQuotation
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		quotation, err := models.CreateQuotation(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "createQuotationHandler", err)
			return
		}
		respondOK(c, quotation)
	}
}

func updateQuotationStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid id"})
			return
		}
		var input struct {
			Status models.QuotationStatus `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		quotation, err := models.UpdateQuotationStatus(c.Request.Context(), id, input.Status)
		if err != nil {
			respondError(c, "updateQuotationStatusHandler", err)
			return
		}
		respondOK(c, quotation)
	}
}

func convertQuotationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid id"})
			return
		}
		var input workflow.ConvertQuotationInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		sale, err := workflow.ConvertQuotation(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, "convertQuotationHandler", err)
			return
		}
		invalidateStockStatusCache()
		respondOK(c, sale)
	}
}

func getQuotationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid id"})
			return
		}
		quotation, err := models.GetQuotation(c.Request.Context(), id)
		if err != nil {
			respondError(c, "getQuotationHandler", err)
			return
		}
		respondOK(c, quotation)
	}
}

func createCustomerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCustomer
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		customer, err := models.CreateCustomer(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "createCustomerHandler", err)
			return
		}
		respondOK(c, customer)
	}
}

func updateCustomerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid id"})
			return
		}
		var input models.NewCustomer
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		customer, err := models.UpdateCustomer(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, "updateCustomerHandler", err)
			return
		}
		respondOK(c, customer)
	}
}

func deleteCustomerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid id"})
			return
		}
		if err := models.DeleteCustomer(c.Request.Context(), id); err != nil {
			respondError(c, "deleteCustomerHandler", err)
			return
		}
		respondOK(c, gin.H{"deleted": true})
	}
}

func customerStatementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid id"})
			return
		}
		fromDate, err := parseDateParam(c.Query("from"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid from date"})
			return
		}
		toDate, err := parseDateParam(c.Query("to"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid to date"})
			return
		}
		statement, err := models.GetCustomerStatement(c.Request.Context(), id, fromDate, toDate)
		if err != nil {
			respondError(c, "customerStatementHandler", err)
			return
		}
		respondOK(c, statement)
	}
}

func createSupplierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewSupplier
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		supplier, err := models.CreateSupplier(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "createSupplierHandler", err)
			return
		}
		respondOK(c, supplier)
	}
}

func updateSupplierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid id"})
			return
		}
		var input models.NewSupplier
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		supplier, err := models.UpdateSupplier(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, "updateSupplierHandler", err)
			return
		}
		respondOK(c, supplier)
	}
}

func deleteSupplierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid id"})
			return
		}
		if err := models.DeleteSupplier(c.Request.Context(), id); err != nil {
			respondError(c, "deleteSupplierHandler", err)
			return
		}
		respondOK(c, gin.H{"deleted": true})
	}
}

func supplierStatementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid id"})
			return
		}
		fromDate, err := parseDateParam(c.Query("from"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid from date"})
			return
		}
		toDate, err := parseDateParam(c.Query("to"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid to date"})
			return
		}
		statement, err := models.GetSupplierStatement(c.Request.Context(), id, fromDate, toDate)
		if err != nil {
			respondError(c, "supplierStatementHandler", err)
			return
		}
		respondOK(c, statement)
	}
}

func customerPaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.NewCustomerPayment
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		payment, err := workflow.RecordCustomerPayment(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "customerPaymentHandler", err)
			return
		}
		respondOK(c, payment)
	}
}

func supplierPaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.NewSupplierPayment
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		payment, err := workflow.RecordSupplierPayment(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "supplierPaymentHandler", err)
			return
		}
		respondOK(c, payment)
	}
}

func accountTransferHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			FromAccount string          `json:"from_account" binding:"required"`
			ToAccount   string          `json:"to_account" binding:"required"`
			Amount      decimal.Decimal `json:"amount" binding:"required"`
			Description string          `json:"description"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		reference, err := models.TransferBetweenAccounts(c.Request.Context(),
			input.FromAccount, input.ToAccount, input.Amount, input.Description)
		if err != nil {
			respondError(c, "accountTransferHandler", err)
			return
		}
		respondOK(c, gin.H{"reference": reference})
	}
}

func listAccountsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		accounts, err := models.GetAccounts(c.Request.Context())
		if err != nil {
			respondError(c, "listAccountsHandler", err)
			return
		}
		respondOK(c, accounts)
	}
}

func accountBalanceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		asOf, err := parseDateParam(c.Query("as_of"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid as_of date"})
			return
		}
		balance, err := models.AccountBalance(c.Request.Context(), c.Param("name"), asOf)
		if err != nil {
			respondError(c, "accountBalanceHandler", err)
			return
		}
		respondOK(c, gin.H{"balance": balance})
	}
}

func accountStatementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		fromDate, err := parseDateParam(c.Query("from"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid from date"})
			return
		}
		toDate, err := parseDateParam(c.Query("to"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid to date"})
			return
		}
		statement, err := models.GetAccountStatement(c.Request.Context(), c.Param("name"), fromDate, toDate)
		if err != nil {
			respondError(c, "accountStatementHandler", err)
			return
		}
		respondOK(c, statement)
	}
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "route not found"})
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so the platform considers the revision
	// healthy. Until DB/Redis are ready, app endpoints return 503.
	r := gin.New()

	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), cid)
		if actor := c.GetHeader("x-acted-by"); actor != "" {
			ctx = utils.SetActorInContext(ctx, actor)
		}
		if location := c.GetHeader("x-location"); location != "" {
			ctx = utils.SetLocationInContext(ctx, location)
		}
		spanCtx, span := tracer.Start(ctx, c.Request.Method+" "+c.FullPath())
		defer span.End()
		c.Request = c.Request.WithContext(spanCtx)
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// In production require an explicit allowlist; allow all elsewhere.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization", "x-acted-by", "x-correlation-id", "x-location")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.POST("/items", createItemHandler())
	r.PUT("/items/:id", updateItemHandler())
	r.GET("/items/:id", getItemHandler())
	r.GET("/items/:id/check-stock", checkStockHandler())
	r.GET("/stock-status", stockStatusHandler())
	r.GET("/reports/stock-valuation", stockValuationExportHandler())

	r.POST("/sales", createSaleHandler())
	r.GET("/sales", listSalesHandler())
	r.GET("/sales/:id", getSaleHandler())
	r.GET("/sales/:id/payments", salePaymentsHandler())
	r.POST("/sales/:id/cancel", cancelSaleHandler())
	r.POST("/sales/:id/returns", processReturnHandler())

	r.POST("/purchases", createPurchaseHandler())

	r.POST("/quotations", createQuotationHandler())
	r.GET("/quotations/:id", getQuotationHandler())
	r.PUT("/quotations/:id/status", updateQuotationStatusHandler())
	r.POST("/quotations/:id/convert", convertQuotationHandler())

	r.POST("/customers", createCustomerHandler())
	r.PUT("/customers/:id", updateCustomerHandler())
	r.DELETE("/customers/:id", deleteCustomerHandler())
	r.GET("/customers/:id/statement", customerStatementHandler())
	r.POST("/suppliers", createSupplierHandler())
	r.PUT("/suppliers/:id", updateSupplierHandler())
	r.DELETE("/suppliers/:id", deleteSupplierHandler())
	r.GET("/suppliers/:id/statement", supplierStatementHandler())

	r.POST("/payments/customer", customerPaymentHandler())
	r.POST("/payments/supplier", supplierPaymentHandler())
	r.POST("/transfers", accountTransferHandler())
	r.GET("/accounts", listAccountsHandler())
	r.GET("/accounts/:name/balance", accountBalanceHandler())
	r.GET("/accounts/:name/statement", accountStatementHandler())

	r.NoRoute(customNotFoundHandler)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running migrations as
	// a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Set the session isolation level to READ COMMITTED
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port)
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
