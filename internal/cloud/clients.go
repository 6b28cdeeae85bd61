package cloud

import (
	"context"
	"fmt"
	"sync"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// CloudFormationAPI — используемая часть клиента CloudFormation.
type CloudFormationAPI interface {
	CreateStack(ctx context.Context, in *cloudformation.CreateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error)
	DescribeStacks(ctx context.Context, in *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
}

// EC2API — используемая часть клиента EC2.
type EC2API interface {
	DescribeVpcs(ctx context.Context, in *ec2.DescribeVpcsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error)
}

// SSMAPI — используемая часть клиента SSM.
type SSMAPI interface {
	PutParameter(ctx context.Context, in *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

// Clients — клиенты одного региона.
type Clients struct {
	CloudFormation CloudFormationAPI
	EC2            EC2API
	SSM            SSMAPI
}

// ClientFactory создаёт клиентов для региона.
type ClientFactory func(ctx context.Context, region string) (*Clients, error)

// ClientSet кэширует клиентов по регионам.
type ClientSet struct {
	factory ClientFactory
	cache   map[string]*Clients
	mu      sync.Mutex
}

// NewClientSet создаёт ClientSet с клиентами из стандартной цепочки
// AWS-конфигурации (переменные окружения, профили, IMDS).
func NewClientSet() *ClientSet {
	return NewClientSetWithFactory(DefaultFactory)
}

// NewClientSetWithFactory создаёт ClientSet с заданной фабрикой.
func NewClientSetWithFactory(factory ClientFactory) *ClientSet {
	return &ClientSet{factory: factory, cache: make(map[string]*Clients)}
}

// NewStaticClientSet возвращает одних и тех же клиентов для любого региона.
func NewStaticClientSet(clients *Clients) *ClientSet {
	return NewClientSetWithFactory(func(context.Context, string) (*Clients, error) {
		return clients, nil
	})
}

// DefaultFactory загружает AWS-конфигурацию для региона.
func DefaultFactory(ctx context.Context, region string) (*Clients, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Clients{
		CloudFormation: cloudformation.NewFromConfig(cfg),
		EC2:            ec2.NewFromConfig(cfg),
		SSM:            ssm.NewFromConfig(cfg),
	}, nil
}

// ForRegion возвращает клиентов региона, создавая их при первом обращении.
func (s *ClientSet) ForRegion(ctx context.Context, region string) (*Clients, error) {
	if region == "" {
		return nil, ErrRegionRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.cache[region]; ok {
		return c, nil
	}

	c, err := s.factory(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("clients for %s: %w", region, err)
	}
	s.cache[region] = c
	return c, nil
}
