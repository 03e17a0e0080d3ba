package grpcapi

import (
	"context"

	"google.golang.org/grpc"

	"medivault-api/internal/auth"
	"medivault-api/internal/model"
)

const ServiceName = "medivault.v1.AppointmentService"

type CreateAppointmentRequest struct {
	DoctorID string `json:"doctorId"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Reason   string `json:"reason"`
	Symptoms string `json:"symptoms,omitempty"`
}

type AppointmentResponse struct {
	Appointment *model.AppointmentView `json:"appointment"`
}

type ListAppointmentsRequest struct{}

type ListAppointmentsResponse struct {
	Appointments []*model.AppointmentView `json:"appointments"`
	Count        int                      `json:"count"`
}

type GetAppointmentRequest struct {
	ID string `json:"id"`
}

type UpdateAppointmentRequest struct {
	ID       string  `json:"id"`
	Status   *string `json:"status,omitempty"`
	Date     *string `json:"date,omitempty"`
	Time     *string `json:"time,omitempty"`
	Reason   *string `json:"reason,omitempty"`
	Symptoms *string `json:"symptoms,omitempty"`
}

type DeleteAppointmentRequest struct {
	ID string `json:"id"`
}

type DeleteAppointmentResponse struct {
	Message string `json:"message"`
}

type ListDoctorsRequest struct{}

type ListDoctorsResponse struct {
	Doctors []model.DoctorSummary `json:"doctors"`
	Count   int                   `json:"count"`
}

type RegisterRequest struct {
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	Role            string  `json:"role,omitempty"`
	PhoneNumber     string  `json:"phoneNumber,omitempty"`
	Specialization  string  `json:"specialization,omitempty"`
	ConsultationFee float64 `json:"consultationFee,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AppointmentServer is implemented by Handler.
type AppointmentServer interface {
	CreateAppointment(context.Context, *CreateAppointmentRequest) (*AppointmentResponse, error)
	ListAppointments(context.Context, *ListAppointmentsRequest) (*ListAppointmentsResponse, error)
	GetAppointment(context.Context, *GetAppointmentRequest) (*AppointmentResponse, error)
	UpdateAppointment(context.Context, *UpdateAppointmentRequest) (*AppointmentResponse, error)
	DeleteAppointment(context.Context, *DeleteAppointmentRequest) (*DeleteAppointmentResponse, error)
	ListDoctors(context.Context, *ListDoctorsRequest) (*ListDoctorsResponse, error)
	Register(context.Context, *RegisterRequest) (*auth.Session, error)
	Login(context.Context, *LoginRequest) (*auth.Session, error)
	Refresh(context.Context, *RefreshRequest) (*auth.Session, error)
}

func unary[Req, Resp any](name string, call func(AppointmentServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, icpt grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			h := func(ctx context.Context, req any) (any, error) {
				return call(srv.(AppointmentServer), ctx, req.(*Req))
			}
			if icpt == nil {
				return h(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return icpt(ctx, in, info, h)
		},
	}
}

// ServiceDesc describes the service for grpc.Server.RegisterService. Messages
// travel as JSON.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AppointmentServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateAppointment", AppointmentServer.CreateAppointment),
		unary("ListAppointments", AppointmentServer.ListAppointments),
		unary("GetAppointment", AppointmentServer.GetAppointment),
		unary("UpdateAppointment", AppointmentServer.UpdateAppointment),
		unary("DeleteAppointment", AppointmentServer.DeleteAppointment),
		unary("ListDoctors", AppointmentServer.ListDoctors),
		unary("Register", AppointmentServer.Register),
		unary("Login", AppointmentServer.Login),
		unary("Refresh", AppointmentServer.Refresh),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "medivault/v1/appointment",
}

// Client calls the service over any connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *Client, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateAppointment(ctx context.Context, in *CreateAppointmentRequest, opts ...grpc.CallOption) (*AppointmentResponse, error) {
	return invoke[AppointmentResponse](ctx, c, "CreateAppointment", in, opts)
}

func (c *Client) ListAppointments(ctx context.Context, in *ListAppointmentsRequest, opts ...grpc.CallOption) (*ListAppointmentsResponse, error) {
	return invoke[ListAppointmentsResponse](ctx, c, "ListAppointments", in, opts)
}

func (c *Client) GetAppointment(ctx context.Context, in *GetAppointmentRequest, opts ...grpc.CallOption) (*AppointmentResponse, error) {
	return invoke[AppointmentResponse](ctx, c, "GetAppointment", in, opts)
}

func (c *Client) UpdateAppointment(ctx context.Context, in *UpdateAppointmentRequest, opts ...grpc.CallOption) (*AppointmentResponse, error) {
	return invoke[AppointmentResponse](ctx, c, "UpdateAppointment", in, opts)
}

func (c *Client) DeleteAppointment(ctx context.Context, in *DeleteAppointmentRequest, opts ...grpc.CallOption) (*DeleteAppointmentResponse, error) {
	return invoke[DeleteAppointmentResponse](ctx, c, "DeleteAppointment", in, opts)
}

func (c *Client) ListDoctors(ctx context.Context, in *ListDoctorsRequest, opts ...grpc.CallOption) (*ListDoctorsResponse, error) {
	return invoke[ListDoctorsResponse](ctx, c, "ListDoctors", in, opts)
}

func (c *Client) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*auth.Session, error) {
	return invoke[auth.Session](ctx, c, "Register", in, opts)
}

func (c *Client) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*auth.Session, error) {
	return invoke[auth.Session](ctx, c, "Login", in, opts)
}

func (c *Client) Refresh(ctx context.Context, in *RefreshRequest, opts ...grpc.CallOption) (*auth.Session, error) {
	return invoke[auth.Session](ctx, c, "Refresh", in, opts)
}
