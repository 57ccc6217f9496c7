// Package utils 提供批量 RPC 查询辅助
package utils

import (
	"context"
	"sync"

	"github.com/omahs/web3-ethereum-defi/client"
)

// BatchConfig 批量操作配置
type BatchConfig struct {
	// Concurrency worker 数量
	Concurrency int
	// OnProgress 进度回调函数
	OnProgress func(progress BatchProgress)
}

// BatchProgress 批量操作进度
type BatchProgress struct {
	// Completed 已完成数量
	Completed int
	// Total 总数量
	Total int
	// Percentage 进度百分比（0-100）
	Percentage int
	// Success 成功数量
	Success int
	// Failed 失败数量
	Failed int
}

// DefaultBatchConfig 返回默认批量配置
func DefaultBatchConfig() *BatchConfig {
	return &BatchConfig{
		Concurrency: 5,
		OnProgress:  nil,
	}
}

// BatchError 批量操作错误
type BatchError struct {
	// Index 项目索引
	Index int
	// Error 错误信息
	Error error
}

// BatchQueryResult 批量查询结果
type BatchQueryResult[R any] struct {
	// Results 按输入顺序排列的结果（失败项为零值）
	Results []R
	// Errors 失败的项目
	Errors []BatchError
	// Total 总数量
	Total int
	// Success 成功数量
	Success int
	// Failed 失败数量
	Failed int
}

// BatchQuery 批量并发查询
//
// 对一组输入并发调用查询函数。每个 worker 通过连接工厂获取
// 自己的私有连接句柄（句柄不跨 worker 共享），查询函数收到的
// 句柄即当前 worker 的句柄。
//
// 示例：
//
//	addresses := []common.Address{addr1, addr2, addr3}
//	result, err := utils.BatchQuery(ctx, factory, addresses,
//	    func(ctx context.Context, h *client.Handle, addr common.Address, index int) (*big.Int, error) {
//	        return h.Eth().BalanceAt(ctx, addr, nil)
//	    }, nil)
func BatchQuery[T any, R any](
	ctx context.Context,
	factory client.Factory,
	items []T,
	queryFn func(ctx context.Context, handle *client.Handle, item T, index int) (R, error),
	config *BatchConfig,
) (*BatchQueryResult[R], error) {
	if config == nil {
		config = DefaultBatchConfig()
	}
	concurrency := config.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	if concurrency > len(items) {
		concurrency = len(items)
	}

	result := &BatchQueryResult[R]{
		Results: make([]R, len(items)),
		Total:   len(items),
	}
	if len(items) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	completed := 0

	updateProgress := func(ok bool) {
		mu.Lock()
		defer mu.Unlock()
		completed++
		if ok {
			result.Success++
		} else {
			result.Failed++
		}
		if config.OnProgress != nil {
			config.OnProgress(BatchProgress{
				Completed:  completed,
				Total:      len(items),
				Percentage: (completed * 100) / len(items),
				Success:    result.Success,
				Failed:     result.Failed,
			})
		}
	}

	indexes := make(chan int)
	var wg sync.WaitGroup

	for workerID := 0; workerID < concurrency; workerID++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			// 每个 worker 初始化时从工厂获取自己的句柄
			handle, err := factory.Worker(ctx, workerID)
			if err != nil {
				for index := range indexes {
					mu.Lock()
					result.Errors = append(result.Errors, BatchError{Index: index, Error: err})
					mu.Unlock()
					updateProgress(false)
				}
				return
			}

			for index := range indexes {
				value, err := queryFn(ctx, handle, items[index], index)
				if err != nil {
					mu.Lock()
					result.Errors = append(result.Errors, BatchError{Index: index, Error: err})
					mu.Unlock()
					updateProgress(false)
					continue
				}
				mu.Lock()
				result.Results[index] = value
				mu.Unlock()
				updateProgress(true)
			}
		}(workerID)
	}

	for i := range items {
		select {
		case <-ctx.Done():
			close(indexes)
			wg.Wait()
			return result, ctx.Err()
		case indexes <- i:
		}
	}
	close(indexes)
	wg.Wait()

	return result, nil
}
