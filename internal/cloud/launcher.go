package cloud

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"

	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/tasks"
)

// maxTemplateBody — максимальный размер TemplateBody в CreateStack.
// Шаблоны больше передаются через TemplateURL.
const maxTemplateBody = 51200

// stackCapabilities — capabilities, которые подтверждаются при создании стека.
var stackCapabilities = []cftypes.Capability{
	cftypes.CapabilityCapabilityIam,
	cftypes.CapabilityCapabilityNamedIam,
	cftypes.CapabilityCapabilityAutoExpand,
}

// TemplateSource возвращает тело шаблона по адресу.
type TemplateSource interface {
	Fetch(ctx context.Context, location string) (string, error)
}

// StackLauncher создаёт стек CloudFormation.
type StackLauncher struct {
	clients   *ClientSet
	templates TemplateSource
}

// NewStackLauncher создаёт StackLauncher.
func NewStackLauncher(clients *ClientSet, templates TemplateSource) *StackLauncher {
	return &StackLauncher{clients: clients, templates: templates}
}

// Launch вызывает CreateStack. Существующий стек даёт tasks.ErrAlreadyExists.
func (l *StackLauncher) Launch(ctx context.Context, step domain.StepRequest) error {
	c, err := l.clients.ForRegion(ctx, step.RegionName)
	if err != nil {
		return err
	}

	// 1. Шаблон
	body, err := l.templates.Fetch(ctx, step.TemplateLocation)
	if err != nil {
		return err
	}

	in := &cloudformation.CreateStackInput{
		StackName:    aws.String(step.StackName),
		Parameters:   stackParameters(step.Parameters),
		Capabilities: stackCapabilities,
	}
	if len(body) > maxTemplateBody && isRemote(step.TemplateLocation) {
		in.TemplateURL = aws.String(step.TemplateLocation)
	} else {
		in.TemplateBody = aws.String(body)
	}

	// 2. Создание
	_, err = c.CloudFormation.CreateStack(ctx, in)
	if err != nil {
		var exists *cftypes.AlreadyExistsException
		if errors.As(err, &exists) {
			return fmt.Errorf("%w: %s", tasks.ErrAlreadyExists, step.StackName)
		}
		return fmt.Errorf("create stack: %w", err)
	}

	return nil
}

// stackParameters переводит параметры в формат CloudFormation (по возрастанию ключа).
func stackParameters(params map[string]string) []cftypes.Parameter {
	if len(params) == 0 {
		return nil
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]cftypes.Parameter, 0, len(keys))
	for _, k := range keys {
		out = append(out, cftypes.Parameter{
			ParameterKey:   aws.String(k),
			ParameterValue: aws.String(params[k]),
		})
	}
	return out
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "https://") || strings.HasPrefix(location, "http://")
}
