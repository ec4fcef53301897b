// Package rpc wires Connect handlers and clients for SmartBill's services.
// Messages are plain Go structs carried by a JSON codec, so no generated
// bindings are involved; procedure paths follow the usual
// /package.Service/Method convention.
package rpc

import (
	"context"
	"encoding/json"
	"net/http"

	"connectrpc.com/connect"
)

// Procedure paths for every RPC the server exposes.
const (
	AuthRegister = "/smartbill.v1.AuthService/Register"
	AuthLogin    = "/smartbill.v1.AuthService/Login"

	ExpenseParseReceipt = "/smartbill.v1.ExpenseService/ParseReceipt"
	ExpenseCreate       = "/smartbill.v1.ExpenseService/CreateExpense"
	ExpenseGet          = "/smartbill.v1.ExpenseService/GetExpense"
	ExpenseList         = "/smartbill.v1.ExpenseService/ListExpenses"
	ExpenseDelete       = "/smartbill.v1.ExpenseService/DeleteExpense"

	ContactAdd         = "/smartbill.v1.ContactService/AddContact"
	ContactList        = "/smartbill.v1.ContactService/ListContacts"
	ContactUpdate      = "/smartbill.v1.ContactService/UpdateContact"
	ContactDelete      = "/smartbill.v1.ContactService/DeleteContact"
	ContactGroupCreate = "/smartbill.v1.ContactService/CreateGroup"
	ContactGroupList   = "/smartbill.v1.ContactService/ListGroups"
	ContactGroupDelete = "/smartbill.v1.ContactService/DeleteGroup"

	SplitPreview   = "/smartbill.v1.SplitService/PreviewSplit"
	SplitSendBills = "/smartbill.v1.SplitService/SendBills"
	SplitList      = "/smartbill.v1.SplitService/ListSplits"
)

// jsonCodec marshals RPC messages as plain JSON.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(message any) ([]byte, error) {
	return json.Marshal(message)
}

func (jsonCodec) Unmarshal(data []byte, message any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, message)
}

// Handle mounts a unary procedure on mux.
func Handle[Req, Res any](
	mux *http.ServeMux,
	procedure string,
	fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error),
	opts ...connect.HandlerOption,
) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, opts...))
}

// NewClient builds a unary client for one procedure. Used by tests and by
// anything that wants to call the server programmatically.
func NewClient[Req, Res any](httpClient connect.HTTPClient, baseURL, procedure string, opts ...connect.ClientOption) *connect.Client[Req, Res] {
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return connect.NewClient[Req, Res](httpClient, baseURL+procedure, opts...)
}
