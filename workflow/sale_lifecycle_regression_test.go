package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/retailops_backend/config"
	"bitbucket.org/mmdatafocus/retailops_backend/models"
	"bitbucket.org/mmdatafocus/retailops_backend/utils"
	"bitbucket.org/mmdatafocus/retailops_backend/workflow"
	"github.com/shopspring/decimal"
)

func TestSaleLifecycleAgainstRealDatabase(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "retailops_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx = utils.SetActorInContext(ctx, "tester")

	// Opening stock 5 @ 10.
	item, err := models.CreateItem(ctx, &models.NewItem{
		Name:         "Cement Bag",
		Category:     "Construction",
		ItemType:     models.ItemTypeStock,
		CostPrice:    decimal.NewFromInt(10),
		SellingPrice: decimal.NewFromInt(100),
		ReorderLevel: decimal.NewFromInt(2),
		OpeningQty:   decimal.NewFromInt(5),
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	supplier, err := models.CreateSupplier(ctx, &models.NewSupplier{Name: "BuildMart"})
	if err != nil {
		t.Fatalf("CreateSupplier: %v", err)
	}

	// Second batch 8 @ 12 lands behind the opening layer.
	if _, err := workflow.CreatePurchase(ctx, &models.NewPurchase{
		SupplierId:  supplier.ID,
		PaymentMode: models.PaymentModeCash,
		Items: []models.NewPurchaseItem{
			{ItemId: item.ID, Qty: decimal.NewFromInt(8), UnitCost: decimal.NewFromInt(12)},
		},
	}); err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}

	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Daw Mya"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	// Credit sale of 7: crosses both layers, COGS = 5*10 + 2*12 = 74.
	sale, err := workflow.CreateSale(ctx, &models.NewSaleTransaction{
		CustomerId:  customer.ID,
		PaymentMode: models.PaymentModeCredit,
		PaidAmount:  decimal.NewFromInt(300),
		Items: []models.NewSaleItem{
			{ItemId: item.ID, Qty: decimal.NewFromInt(7), UnitPrice: decimal.NewFromInt(100)},
		},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if sale.ReceiptNo != "110001" {
		t.Errorf("first receipt = %q, want 110001", sale.ReceiptNo)
	}
	if !sale.CogsTotal.Equal(decimal.NewFromInt(74)) {
		t.Errorf("cogs = %s, want 74", sale.CogsTotal)
	}
	if !strings.HasPrefix(sale.FulfillmentStatus, "PendingRelease") {
		t.Errorf("fulfillment = %q, want PendingRelease", sale.FulfillmentStatus)
	}
	if len(sale.Details) != 2 {
		t.Errorf("details = %d, want one row per batch slice", len(sale.Details))
	}

	item, err = models.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if !item.CurrentQty.Equal(decimal.NewFromInt(6)) {
		t.Errorf("stock after sale = %s, want 6", item.CurrentQty)
	}
	if err := models.VerifyItemBatchConsistency(ctx, item.ID); err != nil {
		t.Errorf("batch consistency after sale: %v", err)
	}

	customer, err = models.GetCustomer(ctx, customer.ID)
	if err != nil {
		t.Fatalf("GetCustomer: %v", err)
	}
	if !customer.Balance.Equal(decimal.NewFromInt(400)) {
		t.Errorf("customer balance = %s, want 400", customer.Balance)
	}
	if customer.LoyaltyPoints != config.LoyaltyPointsPerSale() {
		t.Errorf("loyalty points = %d, want %d", customer.LoyaltyPoints, config.LoyaltyPointsPerSale())
	}

	// Settling the credit releases the goods.
	if _, err := workflow.RecordCustomerPayment(ctx, &workflow.NewCustomerPayment{
		CustomerId: customer.ID,
		SaleId:     sale.ID,
		Mode:       models.PaymentModeCash,
		Amount:     decimal.NewFromInt(400),
	}); err != nil {
		t.Fatalf("RecordCustomerPayment: %v", err)
	}
	sale, err = models.GetSale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("GetSale: %v", err)
	}
	if sale.FulfillmentStatus != "ReadyForPickup" {
		t.Errorf("fulfillment after settlement = %q, want ReadyForPickup", sale.FulfillmentStatus)
	}

	// Partial return of 2 from the opening batch slice.
	var openingDetail *models.SaleTransactionDetail
	for i := range sale.Details {
		if sale.Details[i].UnitCost.Equal(decimal.NewFromInt(10)) {
			openingDetail = &sale.Details[i]
		}
	}
	if openingDetail == nil {
		t.Fatal("no detail row for the opening batch")
	}
	saleReturn, err := workflow.ProcessReturn(ctx, &models.NewSaleReturn{
		SaleId:     sale.ID,
		RefundMode: models.PaymentModeCash,
		Items: []models.NewReturnItem{
			{SaleDetailId: openingDetail.ID, Qty: decimal.NewFromInt(2)},
		},
	})
	if err != nil {
		t.Fatalf("ProcessReturn: %v", err)
	}
	if !saleReturn.RefundAmount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("refund = %s, want 200", saleReturn.RefundAmount)
	}
	if !saleReturn.CogsReversed.Equal(decimal.NewFromInt(20)) {
		t.Errorf("cogs reversed = %s, want 20", saleReturn.CogsReversed)
	}

	item, _ = models.GetItem(ctx, item.ID)
	if !item.CurrentQty.Equal(decimal.NewFromInt(8)) {
		t.Errorf("stock after return = %s, want 8", item.CurrentQty)
	}

	// Over-returning the same row must fail.
	if _, err := workflow.ProcessReturn(ctx, &models.NewSaleReturn{
		SaleId:     sale.ID,
		RefundMode: models.PaymentModeCash,
		Items: []models.NewReturnItem{
			{SaleDetailId: openingDetail.ID, Qty: decimal.NewFromInt(4)},
		},
	}); err == nil {
		t.Error("return above remaining quantity accepted")
	}

	// Cancel restores the rest; a second cancel is rejected.
	if _, err := workflow.CancelSale(ctx, sale.ID); err != nil {
		t.Fatalf("CancelSale: %v", err)
	}
	item, _ = models.GetItem(ctx, item.ID)
	if !item.CurrentQty.Equal(decimal.NewFromInt(13)) {
		t.Errorf("stock after cancel = %s, want 13", item.CurrentQty)
	}
	if err := models.VerifyItemBatchConsistency(ctx, item.ID); err != nil {
		t.Errorf("batch consistency after cancel: %v", err)
	}
	if _, err := workflow.CancelSale(ctx, sale.ID); !errors.Is(err, utils.ErrAlreadyCancelled) {
		t.Errorf("second cancel = %v, want ErrAlreadyCancelled", err)
	}

	// Cancel also unwinds the customer side back to pre-sale values.
	customer, err = models.GetCustomer(ctx, customer.ID)
	if err != nil {
		t.Fatalf("GetCustomer: %v", err)
	}
	if !customer.Balance.IsZero() {
		t.Errorf("customer balance after cancel = %s, want 0", customer.Balance)
	}
	if customer.LoyaltyPoints != 0 {
		t.Errorf("loyalty points after cancel = %d, want 0", customer.LoyaltyPoints)
	}

	// Walk-in customers cannot buy on credit.
	if _, err := workflow.CreateSale(ctx, &models.NewSaleTransaction{
		PaymentMode: models.PaymentModeCredit,
		Items: []models.NewSaleItem{
			{ItemId: item.ID, Qty: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)},
		},
	}); !errors.Is(err, utils.ErrCreditNotAllowedForWalkIn) {
		t.Errorf("walk-in credit sale = %v, want ErrCreditNotAllowedForWalkIn", err)
	}

	// Expired quotations never convert.
	past := time.Now().Add(-24 * time.Hour)
	quotation, err := models.CreateQuotation(ctx, &models.NewQuotation{
		CustomerId: customer.ID,
		ValidUntil: &past,
		Items: []models.NewQuotationItem{
			{ItemId: item.ID, Qty: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(90)},
		},
	})
	if err != nil {
		t.Fatalf("CreateQuotation: %v", err)
	}
	if _, err := workflow.ConvertQuotation(ctx, quotation.ID, &workflow.ConvertQuotationInput{
		PaymentMode: models.PaymentModeCash,
	}); !errors.Is(err, utils.ErrQuotationExpired) {
		t.Errorf("expired conversion = %v, want ErrQuotationExpired", err)
	}

	// A supplier credit note writes the payable down.
	if _, err := workflow.CreatePurchase(ctx, &models.NewPurchase{
		SupplierId:  supplier.ID,
		PaymentMode: models.PaymentModeCredit,
		Items: []models.NewPurchaseItem{
			{ItemId: item.ID, Qty: decimal.NewFromInt(3), UnitCost: decimal.NewFromInt(12)},
		},
	}); err != nil {
		t.Fatalf("credit CreatePurchase: %v", err)
	}
	supplier, err = models.GetSupplier(ctx, supplier.ID)
	if err != nil {
		t.Fatalf("GetSupplier: %v", err)
	}
	if !supplier.Balance.Equal(decimal.NewFromInt(36)) {
		t.Errorf("supplier payable = %s, want 36", supplier.Balance)
	}
	if err := models.ApplySupplierCreditNote(config.GetDB(), ctx, supplier.ID, decimal.NewFromInt(36), &models.SupplierBalanceChange{
		EntryType: "CreditNote",
		DocType:   "RET",
	}); err != nil {
		t.Fatalf("ApplySupplierCreditNote: %v", err)
	}
	supplier, _ = models.GetSupplier(ctx, supplier.ID)
	if !supplier.Balance.IsZero() {
		t.Errorf("supplier payable after credit note = %s, want 0", supplier.Balance)
	}
}

func TestConcurrentReceiptNumbersAreUnique(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "retailops_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	const workers = 20
	var (
		mu      sync.Mutex
		numbers = make(map[string]bool, workers)
		wg      sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := models.NextDocumentNumber(ctx, models.SeriesSaleReceipt, models.SeriesSaleReceipt)
			if err != nil {
				t.Errorf("NextDocumentNumber: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if numbers[n] {
				t.Errorf("duplicate receipt number %q", n)
			}
			numbers[n] = true
		}()
	}
	wg.Wait()

	if len(numbers) != workers {
		t.Errorf("allocated %d unique numbers, want %d", len(numbers), workers)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("retailops-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("retailops-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=retailops_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
