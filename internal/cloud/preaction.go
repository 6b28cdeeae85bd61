package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/shaiso/Cascade/internal/domain"
)

// VPCPreparer сохраняет ID default VPC региона в SSM перед созданием стека.
//
// Шаблоны читают параметр /deployer/<stack>/default-vpc.
// Повторный вызов перезаписывает тот же параметр.
type VPCPreparer struct {
	clients *ClientSet
}

// NewVPCPreparer создаёт VPCPreparer.
func NewVPCPreparer(clients *ClientSet) *VPCPreparer {
	return &VPCPreparer{clients: clients}
}

const parameterDescription = "Specifies the default vpc for the stack deployment."

// ParameterName возвращает имя SSM-параметра с default VPC для стека.
func ParameterName(stackName string) string {
	return fmt.Sprintf("/deployer/%s/default-vpc", stackName)
}

// Prepare находит default VPC и пишет его ID в SSM.
func (p *VPCPreparer) Prepare(ctx context.Context, step domain.StepRequest) error {
	c, err := p.clients.ForRegion(ctx, step.RegionName)
	if err != nil {
		return err
	}

	// 1. Default VPC региона
	out, err := c.EC2.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{
		Filters: []ec2types.Filter{{
			Name:   aws.String("is-default"),
			Values: []string{"true"},
		}},
	})
	if err != nil {
		return fmt.Errorf("describe vpcs: %w", err)
	}
	switch n := len(out.Vpcs); {
	case n == 0:
		return fmt.Errorf("%w: %s", ErrNoDefaultVPC, step.RegionName)
	case n > 1:
		return fmt.Errorf("%w: %d in %s", ErrUnexpectedVPCCount, n, step.RegionName)
	}
	vpcID := aws.ToString(out.Vpcs[0].VpcId)
	if vpcID == "" {
		return fmt.Errorf("%w: %s", ErrNoDefaultVPC, step.RegionName)
	}

	// 2. Перезаписываем параметр
	_, err = c.SSM.PutParameter(ctx, &ssm.PutParameterInput{
		Name:        aws.String(ParameterName(step.StackName)),
		Value:       aws.String(vpcID),
		Description: aws.String(parameterDescription),
		Type:        ssmtypes.ParameterTypeString,
		Overwrite:   aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("put parameter: %w", err)
	}

	return nil
}
