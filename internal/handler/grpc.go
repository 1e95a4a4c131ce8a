package handler

import (
	"context"
	"errors"
	"time"

	"github.com/MikhailRaia/bookmark-manager/internal/auth"
	"github.com/MikhailRaia/bookmark-manager/internal/model"
	"github.com/MikhailRaia/bookmark-manager/internal/proto"
	"github.com/MikhailRaia/bookmark-manager/internal/viewmodel"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

type BookmarkGRPCServer struct {
	proto.UnimplementedBookmarkServiceServer
	bookmarks BookmarkService
}

func NewBookmarkGRPCServer(bookmarks BookmarkService) *BookmarkGRPCServer {
	return &BookmarkGRPCServer{
		bookmarks: bookmarks,
	}
}

func (s *BookmarkGRPCServer) ListBookmarks(ctx context.Context, _ *emptypb.Empty) (*proto.ListBookmarksResponse, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "user not authenticated")
	}

	vm, err := s.bookmarks.Mount(ctx, identity)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to list bookmarks: %v", err)
	}

	snap := vm.Snapshot()
	resp := &proto.ListBookmarksResponse{
		State:     snap.State.String(),
		Bookmarks: make([]*proto.Bookmark, 0, len(snap.Bookmarks)),
	}
	for _, b := range snap.Bookmarks {
		resp.Bookmarks = append(resp.Bookmarks, toProto(b))
	}

	return resp, nil
}

func (s *BookmarkGRPCServer) AddBookmark(ctx context.Context, req *proto.AddBookmarkRequest) (*proto.AddBookmarkResponse, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "user not authenticated")
	}

	_, created, err := s.bookmarks.Add(ctx, identity, req.Title, req.Url)
	if err != nil {
		if errors.Is(err, viewmodel.ErrIncomplete) {
			return nil, status.Error(codes.InvalidArgument, "title and url are required")
		}
		return nil, status.Errorf(codes.Internal, "failed to add bookmark: %v", err)
	}

	return &proto.AddBookmarkResponse{Bookmark: toProto(created)}, nil
}

func (s *BookmarkGRPCServer) DeleteBookmark(ctx context.Context, req *proto.DeleteBookmarkRequest) (*emptypb.Empty, error) {
	if req.Id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "user not authenticated")
	}

	if _, err := s.bookmarks.Remove(ctx, identity, req.Id); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to delete bookmark: %v", err)
	}

	return &emptypb.Empty{}, nil
}

func toProto(b model.Bookmark) *proto.Bookmark {
	return &proto.Bookmark{
		Id:        b.ID,
		Title:     b.Title,
		Url:       b.URL,
		UserId:    b.Owner,
		CreatedAt: b.CreatedAt.Format(time.RFC3339Nano),
	}
}
