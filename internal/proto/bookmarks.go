package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

const serviceName = "bookmarks.BookmarkService"

type Bookmark struct {
	Id        string `json:"id"`
	Title     string `json:"title"`
	Url       string `json:"url"`
	UserId    string `json:"user_id"`
	CreatedAt string `json:"created_at"`
}

type ListBookmarksResponse struct {
	State     string      `json:"state"`
	Bookmarks []*Bookmark `json:"bookmarks"`
}

type AddBookmarkRequest struct {
	Title string `json:"title"`
	Url   string `json:"url"`
}

type AddBookmarkResponse struct {
	Bookmark *Bookmark `json:"bookmark"`
}

type DeleteBookmarkRequest struct {
	Id string `json:"id"`
}

// BookmarkServiceServer is the server API for BookmarkService service.
type BookmarkServiceServer interface {
	ListBookmarks(context.Context, *emptypb.Empty) (*ListBookmarksResponse, error)
	AddBookmark(context.Context, *AddBookmarkRequest) (*AddBookmarkResponse, error)
	DeleteBookmark(context.Context, *DeleteBookmarkRequest) (*emptypb.Empty, error)
}

// UnimplementedBookmarkServiceServer can be embedded to have forward compatible implementations.
type UnimplementedBookmarkServiceServer struct{}

func (UnimplementedBookmarkServiceServer) ListBookmarks(context.Context, *emptypb.Empty) (*ListBookmarksResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListBookmarks not implemented")
}
func (UnimplementedBookmarkServiceServer) AddBookmark(context.Context, *AddBookmarkRequest) (*AddBookmarkResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method AddBookmark not implemented")
}
func (UnimplementedBookmarkServiceServer) DeleteBookmark(context.Context, *DeleteBookmarkRequest) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteBookmark not implemented")
}

func RegisterBookmarkServiceServer(s grpc.ServiceRegistrar, srv BookmarkServiceServer) {
	s.RegisterService(&_BookmarkService_serviceDesc, srv)
}

func _BookmarkService_ListBookmarks_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BookmarkServiceServer).ListBookmarks(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + serviceName + "/ListBookmarks",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BookmarkServiceServer).ListBookmarks(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _BookmarkService_AddBookmark_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(AddBookmarkRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BookmarkServiceServer).AddBookmark(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + serviceName + "/AddBookmark",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BookmarkServiceServer).AddBookmark(ctx, req.(*AddBookmarkRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _BookmarkService_DeleteBookmark_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(DeleteBookmarkRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BookmarkServiceServer).DeleteBookmark(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + serviceName + "/DeleteBookmark",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BookmarkServiceServer).DeleteBookmark(ctx, req.(*DeleteBookmarkRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var _BookmarkService_serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*BookmarkServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListBookmarks",
			Handler:    _BookmarkService_ListBookmarks_Handler,
		},
		{
			MethodName: "AddBookmark",
			Handler:    _BookmarkService_AddBookmark_Handler,
		},
		{
			MethodName: "DeleteBookmark",
			Handler:    _BookmarkService_DeleteBookmark_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bookmarks.proto",
}

// BookmarkServiceClient is the client API for BookmarkService service. Calls
// use the JSON codec.
type BookmarkServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewBookmarkServiceClient(cc grpc.ClientConnInterface) *BookmarkServiceClient {
	return &BookmarkServiceClient{cc: cc}
}

func (c *BookmarkServiceClient) ListBookmarks(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*ListBookmarksResponse, error) {
	out := new(ListBookmarksResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/ListBookmarks", in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BookmarkServiceClient) AddBookmark(ctx context.Context, in *AddBookmarkRequest, opts ...grpc.CallOption) (*AddBookmarkResponse, error) {
	out := new(AddBookmarkResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/AddBookmark", in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BookmarkServiceClient) DeleteBookmark(ctx context.Context, in *DeleteBookmarkRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/DeleteBookmark", in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}
