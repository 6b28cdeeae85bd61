package cloud

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/smithy-go"

	"github.com/shaiso/Cascade/internal/domain"
)

// StackMonitor возвращает текущий статус стека.
type StackMonitor struct {
	clients *ClientSet
}

// NewStackMonitor создаёт StackMonitor.
func NewStackMonitor(clients *ClientSet) *StackMonitor {
	return &StackMonitor{clients: clients}
}

// Status вызывает DescribeStacks.
// Отсутствующий стек — domain.RawStatusNotStarted, не ошибка.
func (m *StackMonitor) Status(ctx context.Context, step domain.StepRequest) (string, error) {
	c, err := m.clients.ForRegion(ctx, step.RegionName)
	if err != nil {
		return "", err
	}

	out, err := c.CloudFormation.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(step.StackName),
	})
	if err != nil {
		if isStackNotFound(err) {
			return domain.RawStatusNotStarted, nil
		}
		return "", fmt.Errorf("describe stacks: %w", err)
	}

	if len(out.Stacks) == 0 {
		return domain.RawStatusNotStarted, nil
	}
	return string(out.Stacks[0].StackStatus), nil
}

// isStackNotFound распознаёт ValidationError "Stack with id X does not exist".
func isStackNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.ErrorCode() == "ValidationError" && strings.Contains(apiErr.ErrorMessage(), "does not exist")
}
