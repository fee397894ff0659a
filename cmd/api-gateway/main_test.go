package main

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainCopiesSharedMiddleware(t *testing.T) {
	shared := make([]gin.HandlerFunc, 1, 4)
	shared[0] = func(*gin.Context) {}

	var hit string
	assign := chain(shared, func(*gin.Context) { hit = "assign" })
	dispose := chain(shared, func(*gin.Context) { hit = "dispose" })

	require.Len(t, assign, 2)
	require.Len(t, dispose, 2)
	assert.Len(t, shared, 1)

	assign[1](nil)
	assert.Equal(t, "assign", hit)
	dispose[1](nil)
	assert.Equal(t, "dispose", hit)
}
