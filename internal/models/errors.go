package models

import (
	"errors"
	"fmt"
)

// NotFoundError 未知的批次/仓区/建议 ID
type NotFoundError struct {
	Kind string // "batch", "zone", "recommendation"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// AlreadyInProgressError 同一批次已有分析请求在途
type AlreadyInProgressError struct {
	BatchID string
}

func (e *AlreadyInProgressError) Error() string {
	return fmt.Sprintf("analysis already in progress for batch %s", e.BatchID)
}

// InvalidTransitionError 非法状态迁移（如重复调度、审批终态建议）
type InvalidTransitionError struct {
	Kind   string
	ID     string
	From   string
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for %s %s (current: %s): %s", e.Kind, e.ID, e.From, e.Reason)
}

// IsNotFound 判断错误是否为 NotFound
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsAlreadyInProgress 判断错误是否为 AlreadyInProgress
func IsAlreadyInProgress(err error) bool {
	var target *AlreadyInProgressError
	return errors.As(err, &target)
}

// IsInvalidTransition 判断错误是否为 InvalidTransition
func IsInvalidTransition(err error) bool {
	var target *InvalidTransitionError
	return errors.As(err, &target)
}
