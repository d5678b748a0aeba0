// Copyright 2025 The Docpipeline Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"testing"

	"docpipeline/shared/logger"
)

func TestSubmitCommandWhenDisconnected(t *testing.T) {
	b := NewBridge(logger.New("bridge-test"), "indesign", "ws://127.0.0.1:0", "http://127.0.0.1:0")

	_, transportErr := b.SubmitCommand(context.Background(), "indesign", "ping", nil)
	if transportErr == nil {
		t.Fatal("expected an error when not connected to proxy")
	}
	if transportErr.Code != CodeBridgeDisconnected {
		t.Errorf("expected BRIDGE_DISCONNECTED, got %s", transportErr.Code)
	}
}

func TestConnectedDefaultsFalse(t *testing.T) {
	b := NewBridge(logger.New("bridge-test"), "indesign", "ws://127.0.0.1:0", "http://127.0.0.1:0")
	if b.Connected() {
		t.Error("expected a freshly constructed bridge to be disconnected")
	}
}

func TestClearPendingRemovesEntry(t *testing.T) {
	b := NewBridge(logger.New("bridge-test"), "indesign", "", "")
	b.pending["req-1"] = &pendingEntry{ch: make(chan *Response, 1)}
	b.clearPending("req-1")

	if _, ok := b.pending["req-1"]; ok {
		t.Error("expected pending entry to be removed")
	}
}
