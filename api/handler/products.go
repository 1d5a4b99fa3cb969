package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/agent-first/agentmap/models"
	"github.com/agent-first/agentmap/store"
)

// ListProducts returns a handler for GET /products.
func ListProducts(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := st.ListProducts(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"count":    len(products),
			"products": products,
		})
	}
}

// GetProduct returns a handler for GET /products/:id.
func GetProduct(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		product, err := st.GetProduct(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		if product == nil {
			notFound(c, "Product not found")
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

// DeleteProduct returns a handler for DELETE /products/:id. The product's
// summary is removed with it.
func DeleteProduct(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		deleted, err := st.DeleteProduct(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		if !deleted {
			notFound(c, "Product not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted", "product_id": id})
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": models.ErrorDetail{
				Code:    models.ErrCodeInvalidInput,
				Message: "product id must be an integer",
			},
		})
		return 0, false
	}
	return id, true
}

func notFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, gin.H{
		"error": models.ErrorDetail{
			Code:    models.ErrCodeInvalidInput,
			Message: msg,
		},
	})
}
