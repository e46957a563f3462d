//go:build zmq

package main

import (
	"bytes"
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/goodnatureofminers/pool-coordinator/internal/notify"
	"github.com/pebbe/zmq4"
	"go.uber.org/zap"
)

// chainTopic is published by the daemon on every new main-chain block.
const chainTopic = "json-minimal-chain_main"

func startBlockSignal(ctx context.Context, addr string, logger *zap.Logger) (<-chan struct{}, error) {
	if addr == "" {
		return nil, nil
	}

	sub, err := newSubscriber(addr, chainTopic)
	if err != nil {
		return nil, fmt.Errorf("connect zmq: %w", err)
	}

	out := make(chan struct{}, 1)

	go func() {
		defer sub.Close()
		for ctx.Err() == nil {
			msgParts, err := sub.RecvMessageBytes(0)
			if err != nil {
				if zmq4.AsErrno(err) == zmq4.Errno(syscall.EAGAIN) {
					continue
				}
				logger.Warn("zmq recv failed", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}
			if len(msgParts) == 0 || !bytes.HasPrefix(msgParts[0], []byte(chainTopic)) {
				logger.Warn("skip malformed zmq message", zap.Int("parts", len(msgParts)))
				continue
			}
			logger.Debug("new block announced")
			notify.Send(out)
		}
	}()

	logger.Info("subscribed to daemon block notifications", zap.String("addr", addr))
	return out, nil
}

func newSubscriber(addr string, topics ...string) (*zmq4.Socket, error) {
	sub, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		return nil, err
	}

	// bounded receive so the loop notices cancellation
	if err := sub.SetRcvtimeo(time.Second); err != nil {
		sub.Close()
		return nil, err
	}
	for _, topic := range topics {
		if err := sub.SetSubscribe(topic); err != nil {
			sub.Close()
			return nil, err
		}
	}

	if err := sub.Connect(addr); err != nil {
		sub.Close()
		return nil, err
	}
	return sub, nil
}
