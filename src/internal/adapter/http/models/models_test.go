package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferRequestValidate(t *testing.T) {
	ok := TransferRequest{TransferID: "t-1", FromAccountID: 1, ToAccountID: 2, Amount: 25}
	assert.NoError(t, ok.Validate())

	sameAccount := TransferRequest{TransferID: "t-1", FromAccountID: 1, ToAccountID: 1, Amount: 25}
	assert.NoError(t, sameAccount.Validate(), "same-account is a conflict, not a validation error")

	err := TransferRequest{TransferID: "  ", Amount: -5}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transferId is required")
	assert.Contains(t, err.Error(), "fromAccountId is required")
	assert.Contains(t, err.Error(), "amount must be > 0")
}

func TestBatchTransferRequestValidate(t *testing.T) {
	item := func(id string) TransferRequest {
		return TransferRequest{TransferID: id, FromAccountID: 1, ToAccountID: 2, Amount: 1}
	}

	assert.EqualError(t, BatchTransferRequest{}.Validate(20), "batch must contain at least 1 transfer")

	big := make(BatchTransferRequest, 21)
	for i := range big {
		big[i] = item(strings.Repeat("x", i+1))
	}
	assert.EqualError(t, big.Validate(20), "batch must contain at most 20 transfers")

	err := BatchTransferRequest{item("a"), item("a"), {TransferID: "c"}}.Validate(20)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[1] transferId duplicates item 0")
	assert.Contains(t, err.Error(), "[2] fromAccountId is required")

	assert.NoError(t, BatchTransferRequest{item("a"), item("b")}.Validate(20))
}

func TestCreateAccountRequestValidate(t *testing.T) {
	assert.NoError(t, CreateAccountRequest{Name: "Alice", InitialBalance: 0}.Validate())

	err := CreateAccountRequest{Name: " ", InitialBalance: -1}.Validate()
	require.Error(t, err)
	assert.Equal(t, "name is required; initialBalance must be >= 0", err.Error())
}
