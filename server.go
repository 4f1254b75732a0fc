package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/stitchfocus/garment_backend/config"
	"bitbucket.org/stitchfocus/garment_backend/costing"
	"bitbucket.org/stitchfocus/garment_backend/models"
	"bitbucket.org/stitchfocus/garment_backend/models/reports"
	"bitbucket.org/stitchfocus/garment_backend/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("garment-backend")

// Define a struct to represent the rate limiter.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func getRedisClient(redisAddress string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddress,
	})
	return client
}

func idParam(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func queryInt(c *gin.Context, name string) *int {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

func queryString(c *gin.Context, name string) *string {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil
	}
	return &v
}

func queryDate(c *gin.Context, name string) *time.Time {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil
	}
	return &t
}

func bindError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}

func respond(c *gin.Context, result interface{}, err error) {
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func registerCatalogRoutes(r *gin.Engine) {
	r.POST("/customers", func(c *gin.Context) {
		var input models.NewCustomer
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		result, err := models.CreateCustomer(c.Request.Context(), &input)
		respond(c, result, err)
	})
	r.GET("/customers", func(c *gin.Context) {
		result, err := models.GetCustomers(c.Request.Context(), queryString(c, "name"))
		respond(c, result, err)
	})
	r.GET("/customers/:id", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := models.GetCustomer(c.Request.Context(), id)
		respond(c, result, err)
	})
	r.PUT("/customers/:id", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var input models.NewCustomer
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		result, err := models.UpdateCustomer(c.Request.Context(), id, &input)
		respond(c, result, err)
	})
	r.DELETE("/customers/:id", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := models.DeleteCustomer(c.Request.Context(), id)
		respond(c, result, err)
	})

	r.POST("/suppliers", func(c *gin.Context) {
		var input models.NewSupplier
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		result, err := models.CreateSupplier(c.Request.Context(), &input)
		respond(c, result, err)
	})
	r.GET("/suppliers", func(c *gin.Context) {
		result, err := models.GetSuppliers(c.Request.Context(), queryString(c, "name"))
		respond(c, result, err)
	})
	r.GET("/suppliers/:id", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := models.GetSupplier(c.Request.Context(), id)
		respond(c, result, err)
	})
	r.PUT("/suppliers/:id", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var input models.NewSupplier
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		result, err := models.UpdateSupplier(c.Request.Context(), id, &input)
		respond(c, result, err)
	})
	r.DELETE("/suppliers/:id", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := models.DeleteSupplier(c.Request.Context(), id)
		respond(c, result, err)
	})

	r.POST("/factories", func(c *gin.Context) {
		var input models.NewFactory
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		result, err := models.CreateFactory(c.Request.Context(), &input)
		respond(c, result, err)
	})
	r.GET("/factories", func(c *gin.Context) {
		result, err := models.GetFactories(c.Request.Context(), queryString(c, "name"))
		respond(c, result, err)
	})
	r.PUT("/factories/:id", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var input models.NewFactory
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		result, err := models.UpdateFactory(c.Request.Context(), id, &input)
		respond(c, result, err)
	})
	r.DELETE("/factories/:id", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := models.DeleteFactory(c.Request.Context(), id)
		respond(c, result, err)
	})

	r.POST("/materials", func(c *gin.Context) {
		var input models.NewMaterial
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		result, err := models.CreateMaterial(c.Request.Context(), &input)
		respond(c, result, err)
	})
	r.GET("/materials", func(c *gin.Context) {
		var category *models.MaterialCategory
		if v := queryString(c, "category"); v != nil {
			mc := models.MaterialCategory(*v)
			if !mc.IsValid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid material category"})
				return
			}
			category = &mc
		}
		result, err := models.GetMaterials(c.Request.Context(), category, queryString(c, "name"))
		respond(c, result, err)
	})
	r.PUT("/materials/:id", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var input models.NewMaterial
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		result, err := models.UpdateMaterial(c.Request.Context(), id, &input)
		respond(c, result, err)
	})
	r.DELETE("/materials/:id", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := models.DeleteMaterial(c.Request.Context(), id)
		respond(c, result, err)
	})
}

func registerDevelopmentRoutes(r *gin.Engine) {
	r.POST("/styles", func(c *gin.Context) {
		var input models.NewStyle
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		result, err := models.CreateStyle(c.Request.Context(), &input)
		respond(c, result, err)
	})
	r.GET("/styles", func(c *gin.Context) {
		result, err := models.GetStyles(c.Request.Context(), queryInt(c, "customer_id"), queryString(c, "style_no"))
		respond(c, result, err)
	})
	r.GET("/styles/:id", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := models.GetStyle(c.Request.Context(), id)
		respond(c, result, err)
	})
	r.PUT("/styles/:id", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var input models.NewStyle
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		result, err := models.UpdateStyle(c.Request.Context(), id, &input)
		respond(c, result, err)
	})
	r.DELETE("/styles/:id", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := models.DeleteStyle(c.Request.Context(), id)
		respond(c, result, err)
	})

	r.POST("/development-requests", func(c *gin.Context) {
		var input models.NewDevelopmentRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		result, err := models.CreateDevelopmentRequest(c.Request.Context(), &input)
		respond(c, result, err)
	})
	r.GET("/development-requests", func(c *gin.Context) {
		var status *models.SampleStatus
		if v := queryString(c, "status"); v != nil {
			s := models.SampleStatus(*v)
			if !s.IsValid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sample status"})
				return
			}
			status = &s
		}
		result, err := models.GetDevelopmentRequests(c.Request.Context(), queryInt(c, "customer_id"), status)
		respond(c, result, err)
	})
	r.GET("/development-requests/:id", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := models.GetDevelopmentRequest(c.Request.Context(), id)
		respond(c, result, err)
	})
	r.PUT("/development-requests/:id", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var input models.NewDevelopmentRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		result, err := models.UpdateDevelopmentRequest(c.Request.Context(), id, &input)
		respond(c, result, err)
	})
	r.PUT("/development-requests/:id/status", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var req struct {
			Status models.SampleStatus `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		result, err := models.UpdateSampleStatus(c.Request.Context(), id, req.Status)
		respond(c, result, err)
	})
	r.DELETE("/development-requests/:id", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := models.DeleteDevelopmentRequest(c.Request.Context(), id)
		respond(c, result, err)
	})

	r.POST("/costing-sheets", func(c *gin.Context) {
		var input models.NewCostingSheet
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		result, err := models.CreateCostingSheet(c.Request.Context(), &input)
		respond(c, result, err)
	})
	r.GET("/costing-sheets/:id", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := models.GetCostingSheet(c.Request.Context(), id)
		respond(c, result, err)
	})
	r.GET("/costing-sheets/:id/export", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sheet, err := models.GetCostingSheet(c.Request.Context(), id)
		if err != nil {
			respond(c, nil, err)
			return
		}
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=costing-sheet-%d-rev-%d.xlsx", sheet.DevelopmentRequestId, sheet.RevisionNo))
		if err := reports.ExportCostingSheetExcel(sheet, c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
	})
	r.PUT("/costing-sheets/:id", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var input models.NewCostingSheet
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		result, err := models.UpdateCostingSheet(c.Request.Context(), id, &input)
		respond(c, result, err)
	})
	r.DELETE("/costing-sheets/:id", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := models.DeleteCostingSheet(c.Request.Context(), id)
		respond(c, result, err)
	})
	r.GET("/development-requests/:id/costing-sheets", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := models.GetCostingSheets(c.Request.Context(), id)
		respond(c, result, err)
	})
	r.GET("/development-requests/:id/costing-sheets/latest", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := models.GetLatestCostingSheet(c.Request.Context(), id)
		respond(c, result, err)
	})
	r.POST("/development-requests/:id/costing-sheets/revisions", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := models.CreateCostingSheetRevision(c.Request.Context(), id)
		respond(c, result, err)
	})
}

func registerOrderRoutes(r *gin.Engine) {
	r.POST("/purchase-orders", func(c *gin.Context) {
		var input models.NewPurchaseOrder
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		result, err := models.CreatePurchaseOrder(c.Request.Context(), &input)
		respond(c, result, err)
	})
	r.GET("/purchase-orders", func(c *gin.Context) {
		var status *costing.OrderStatus
		if v := queryString(c, "status"); v != nil {
			s := costing.OrderStatus(*v)
			if !s.IsValid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order status"})
				return
			}
			status = &s
		}
		result, err := models.GetPurchaseOrders(c.Request.Context(),
			queryInt(c, "customer_id"), status, queryDate(c, "from_date"), queryDate(c, "to_date"))
		respond(c, result, err)
	})
	r.GET("/purchase-orders/:id", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := models.GetPurchaseOrder(c.Request.Context(), id)
		respond(c, result, err)
	})
	r.PUT("/purchase-orders/:id", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var input models.NewPurchaseOrder
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		result, err := models.UpdatePurchaseOrder(c.Request.Context(), id, &input)
		respond(c, result, err)
	})
	r.PUT("/purchase-orders/:id/status", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var req struct {
			Status costing.OrderStatus `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		result, err := models.UpdateOrderStatus(c.Request.Context(), id, req.Status)
		respond(c, result, err)
	})
	r.DELETE("/purchase-orders/:id", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := models.DeletePurchaseOrder(c.Request.Context(), id)
		respond(c, result, err)
	})

	r.POST("/order-costs", func(c *gin.Context) {
		var input models.NewOrderCost
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		result, err := models.CreateOrderCost(c.Request.Context(), &input)
		respond(c, result, err)
	})
	r.GET("/purchase-orders/:id/costs", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var category *costing.Category
		if v := queryString(c, "category"); v != nil {
			cc := costing.Category(*v)
			if !cc.IsValid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cost category"})
				return
			}
			category = &cc
		}
		result, err := models.GetOrderCosts(c.Request.Context(), id, category)
		respond(c, result, err)
	})
	r.PUT("/order-costs/:id", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var input models.NewOrderCost
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		result, err := models.UpdateOrderCost(c.Request.Context(), id, &input)
		respond(c, result, err)
	})
	r.DELETE("/order-costs/:id", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := models.DeleteOrderCost(c.Request.Context(), id)
		respond(c, result, err)
	})
}

func registerInvoiceRoutes(r *gin.Engine) {
	r.POST("/invoices", func(c *gin.Context) {
		var input models.NewInvoice
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		result, err := models.CreateInvoice(c.Request.Context(), &input)
		respond(c, result, err)
	})
	r.GET("/invoices", func(c *gin.Context) {
		var status *costing.InvoiceStatus
		if v := queryString(c, "status"); v != nil {
			s := costing.InvoiceStatus(*v)
			if !s.IsValid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice status"})
				return
			}
			status = &s
		}
		result, err := models.GetInvoices(c.Request.Context(), queryInt(c, "customer_id"), status)
		respond(c, result, err)
	})
	r.GET("/invoices/:id", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := models.GetInvoice(c.Request.Context(), id)
		respond(c, result, err)
	})
	r.PUT("/invoices/:id", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var input models.NewInvoice
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		result, err := models.UpdateInvoice(c.Request.Context(), id, &input)
		respond(c, result, err)
	})
	r.PUT("/invoices/:id/status", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var req struct {
			Status costing.InvoiceStatus `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		result, err := models.UpdateInvoiceStatus(c.Request.Context(), id, req.Status)
		respond(c, result, err)
	})
	r.POST("/invoices/:id/payments", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var input models.NewInvoicePayment
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		result, err := models.RecordInvoicePayment(c.Request.Context(), id, &input)
		respond(c, result, err)
	})
	r.DELETE("/invoices/:id", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := models.DeleteInvoice(c.Request.Context(), id)
		respond(c, result, err)
	})
	// Ops tooling: sweep unpaid invoices past due date to Overdue on demand.
	r.POST("/internal/ops/invoices/mark-overdue", func(c *gin.Context) {
		count, err := models.MarkOverdueInvoices(c.Request.Context(), time.Now().UTC())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"marked_overdue": count})
	})
}

func periodPnLFromQuery(c *gin.Context) (*reports.PeriodPnLResponse, error) {
	period := costing.PeriodMonthly
	if v := queryString(c, "period"); v != nil {
		period = costing.Period(strings.ToUpper(*v))
		if !period.IsValid() {
			return nil, errors.New("invalid period")
		}
	}
	refDate := time.Now().UTC()
	if v := queryDate(c, "ref_date"); v != nil {
		refDate = *v
	}
	ctx, span := tracer.Start(c.Request.Context(), "reports.period-pnl")
	defer span.End()
	return reports.GetPeriodPnLReport(ctx, period, refDate,
		queryDate(c, "start_date"), queryDate(c, "end_date"), queryInt(c, "customer_id"))
}

func registerReportRoutes(r *gin.Engine) {
	r.GET("/reports/order-pnl/:id", func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		withColors := c.Query("breakdown") == "color"
		ctx, span := tracer.Start(c.Request.Context(), "reports.order-pnl")
		result, err := reports.GetOrderPnLReport(ctx, id, withColors)
		span.End()
		respond(c, result, err)
	})
	r.GET("/reports/period-pnl", func(c *gin.Context) {
		result, err := periodPnLFromQuery(c)
		respond(c, result, err)
	})
	r.GET("/reports/period-pnl/export", func(c *gin.Context) {
		result, err := periodPnLFromQuery(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=period-pnl.xlsx")
		if err := reports.ExportPeriodPnLExcel(result, c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
	})
	r.GET("/reports/wip", func(c *gin.Context) {
		result, err := reports.GetWipReport(c.Request.Context(), queryInt(c, "customer_id"))
		respond(c, result, err)
	})
}

// runOverdueSweeper flips unpaid invoices past their due date to Overdue once
// a day, so dashboards don't depend on anyone hitting the ops endpoint.
func runOverdueSweeper(ctx context.Context, logger *logrus.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := models.MarkOverdueInvoices(ctx, time.Now().UTC())
			if err != nil {
				config.LogError(logger, "server.go", "runOverdueSweeper", "MarkOverdueInvoices", nil, err)
				continue
			}
			if count > 0 {
				logger.WithFields(logrus.Fields{
					"field": "overdueSweeper",
					"count": count,
				}).Info("marked invoices overdue")
			}
		}
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
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

	// Shutdown coordination.
	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until the DB is ready, we return 503 for app endpoints.
	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		// Always allow Cloud Run startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate app endpoints on database readiness. Redis is optional.
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production-safe CORS:
	// - In production, require explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	// - In non-production, allow all (developer convenience).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))

	// Optional rate limiting (recommended for production).
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := getRedisClient(os.Getenv("REDIS_ADDRESS"))
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	registerCatalogRoutes(r)
	registerDevelopmentRoutes(r)
	registerOrderRoutes(r)
	registerInvoiceRoutes(r)
	registerReportRoutes(r)
	r.NoRoute(customNotFoundHandler)

	// Start listening immediately (Cloud Run startup probe is TCP based).
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

	// Now DB is ready; run migrations.
	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// IMPORTANT: AutoMigrate can run DDL that blocks tables and causes 504/502 timeouts.
	// Allow disabling migrations on startup (run them as a separate job instead).
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	sweeperCtx, cancelSweeper := context.WithCancel(context.Background())
	defer cancelSweeper()
	go runOverdueSweeper(sweeperCtx, logger)

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

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers first so they don't start new work while we're draining.
	cancelSweeper()

	// Drain HTTP requests.
	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
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

// Initialize a new RateLimiter instance.
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Middleware function to check rate limits.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	// Get the IP address or user identifier from the request.
	key := c.ClientIP() // Assuming IP-based rate limiting

	// Check if the key exists in Redis.
	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	// If the key doesn't exist, create it and set expiry.
	if exists == 0 {
		err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Next()
		return
	}

	// If the key exists, get the current count.
	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	// If the count exceeds the limit, return an error response.
	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
